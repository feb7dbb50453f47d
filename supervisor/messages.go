package supervisor

// ControlMessage is the closed set of messages a Supervisor consumes from
// its inbox. The default channel transport delivers these values
// in-process; transport/natsbroadcast defines its own JSON encoding for
// every message except Deploy. The interface is sealed (via the unexported isControlMessage method) so that
// only the message types declared in this file satisfy it — transport
// implementations in other packages construct and route these values, but
// cannot introduce new message kinds.
type ControlMessage interface {
	isControlMessage()
}

// Start requests that the supervisor transition out of the pre-start
// state, fan Start out to every registered subject, and replay its
// pre-start buffer.
type Start struct{}

// Stop requests a graceful shutdown of every subject from ordinal From
// onward, followed by the supervisor's own graceful exit.
type Stop struct{ From int }

// Kill requests an immediate shutdown of every subject from ordinal From
// onward, followed by the supervisor's own exit.
type Kill struct{ From int }

// Deploy asks the supervisor to adopt a new supervised Subject, appending
// it to the deployment order.
type Deploy struct{ Subject Supervised }

// SuperviseWith replaces the supervisor's restart strategy.
type SuperviseWith struct{ Strategy Strategy }

// Message is fanned out verbatim to every registered subject, with no
// acknowledgement.
type Message struct{ Payload any }

// Stopped notifies the supervisor that the subject identified by ID has
// terminated gracefully.
type Stopped struct{ ID Identifier }

// Faulted notifies the supervisor that the subject identified by ID has
// terminated abnormally and needs recovery.
type Faulted struct{ ID Identifier }

// Prune removes a single identifier from the deployment order without
// restarting it. See SPEC_FULL.md §9 for the chosen semantics.
type Prune struct{ ID Identifier }

func (Start) isControlMessage()         {}
func (Stop) isControlMessage()          {}
func (Kill) isControlMessage()          {}
func (Deploy) isControlMessage()        {}
func (SuperviseWith) isControlMessage() {}
func (Message) isControlMessage()       {}
func (Stopped) isControlMessage()       {}
func (Faulted) isControlMessage()       {}
func (Prune) isControlMessage()         {}
