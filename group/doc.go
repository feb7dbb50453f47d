// Package group adapts message-driven workers to the supervision tree's
// Supervised contract, so that a single long-running task can sit inside a
// supervisor's deployment order alongside nested supervisors. It is the
// worker-group half of the split described in the core supervisor package:
// a Group is the opaque leaf a supervisor drives through Deploy/Stop/Kill/
// Reset without needing to know anything about what the worker does.
package group
