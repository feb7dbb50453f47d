package supervisor

import "errors"

var (
	// ErrInboxClosed is returned by SupervisorRef operations when the
	// target supervisor's inbox has already been closed (the supervisor
	// has stopped, been killed, or faulted).
	ErrInboxClosed = errors.New("supervisor inbox closed")
	// ErrAlreadyStarted indicates that a second Start control message was
	// observed after the supervisor had already started. The supervisor
	// itself logs and ignores such a Start rather than returning this
	// error.
	ErrAlreadyStarted = errors.New("supervisor already started")
	// ErrUnknownSubject indicates that a Faulted message, or a
	// Broadcast.SendToChild call, named an identifier that is not
	// recognized. Stopped and Prune for an unknown identifier are only
	// logged.
	ErrUnknownSubject = errors.New("unknown supervised subject")
	// ErrRestartFailed indicates that the restart engine could not
	// recover a faulted subject and the fault must be escalated.
	ErrRestartFailed = errors.New("restart engine failed to recover subject")
	// ErrSubjectVanished indicates a running handle for a subject
	// completed without yielding a subject value, during a stop or kill
	// fan-out. The subject is treated as faulted and moved to killed.
	ErrSubjectVanished = errors.New("supervised subject terminated without a value")
	// ErrSystemRefDenied indicates an attempt to obtain a SupervisorRef
	// for the implicit system (root) supervisor from outside the runtime
	// package.
	ErrSystemRefDenied = errors.New("system supervisor reference is not exposed to user code")
)
