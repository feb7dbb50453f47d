package group

import "github.com/qmuntal/stateless"

// Worker lifecycle states and triggers, tracked for observability only — a
// Group's control flow is driven by its Broadcast inbox and mailbox, not by
// this machine. Firing it in the wrong state is never fatal (the rejection
// is logged or ignored): a
// misbehaving transition must not stop the worker from running.
const (
	stateIdle     = "idle"
	stateRunning  = "running"
	stateStopping = "stopping"
	stateStopped  = "stopped"
	stateFaulted  = "faulted"
)

const (
	triggerStart   = "start"
	triggerStop    = "stop"
	triggerStopped = "stopped"
	triggerFault   = "fault"
)

func newLifecycle() *stateless.StateMachine {
	m := stateless.NewStateMachine(stateIdle)
	m.Configure(stateIdle).
		Permit(triggerStart, stateRunning)
	m.Configure(stateRunning).
		Permit(triggerStop, stateStopping).
		Permit(triggerFault, stateFaulted)
	m.Configure(stateStopping).
		Permit(triggerStopped, stateStopped)
	m.Configure(stateStopped)
	m.Configure(stateFaulted)
	return m
}
