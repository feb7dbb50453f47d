package group

import "context"

// ControlMessage denotes the control instruction carried alongside an
// Envelope's payload, so that shutdown/restart signals never need to be
// conflated with user data on the same channel.
type ControlMessage int

const (
	// MessageData is the default control message: the payload should be
	// handed to the Worker's Handle method.
	MessageData ControlMessage = iota
	// MessageStop requests that the worker's current run stop gracefully.
	MessageStop
)

// Envelope wraps a Worker's mailbox messages, allowing control instructions
// to travel the same channel as user payloads without ambiguity.
type Envelope struct {
	Control ControlMessage
	Payload any
}

// Worker is a message-driven task that a Group can supervise. A Worker
// exposes its own mailbox — Group deliberately does not prescribe how
// payloads reach it — and a Handle method invoked for each payload
// delivered on it once the Group has received Start. Payloads that arrive
// on the mailbox before Start are discarded.
type Worker interface {
	Mailbox() <-chan Envelope
	Handle(ctx context.Context, payload any)
}

// Initialiser lets a Worker run setup logic before its first message is
// processed. Init returning an error aborts the run before Handle is ever
// called, which the owning Group reports as a fault.
type Initialiser interface {
	Init(ctx context.Context) error
}

// Terminator lets a Worker run cleanup logic when its run ends, for any
// reason — graceful stop, mailbox closure, or panic.
type Terminator interface {
	Terminate(ctx context.Context)
}
