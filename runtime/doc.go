// Package runtime hosts the single system supervisor a process runs: the
// distinguished root of the supervision tree, plus the startup/shutdown
// discipline around it (fault pickup, a liveness heartbeat, blocking until
// everything underneath has wound down).
package runtime
