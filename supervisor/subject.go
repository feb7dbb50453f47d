package supervisor

import "context"

// RunningHandle is the handle returned by Launch. Await blocks until the
// subject's run loop has terminated, yielding the dormant Supervised value
// for a graceful stop/kill, or ok=false if the subject vanished without
// producing a value (see SPEC_FULL.md §9).
type RunningHandle interface {
	Await(ctx context.Context) (subject Supervised, ok bool)
}

// Supervised is the uniform contract a supervisor drives any entity it
// supervises through — either a child Supervisor or an opaque worker group.
// It is a closed, two-variant contract: implementations outside this
// package and the group package are not expected, matching SPEC_FULL.md's
// "closed tagged variant" design note.
type Supervised interface {
	// ID returns the subject's current identifier.
	ID() Identifier
	// Broadcast returns the subject's control transport, used by the
	// parent to register/unregister it and to fan out messages.
	Broadcast() Broadcast
	// Callbacks returns the lifecycle hooks configured for this subject.
	Callbacks() Callbacks
	// Reset produces a fresh instance of this subject bound to newBcast,
	// preserving everything about the subject except its identifier and
	// transport. For a worker group this means a newly generated
	// identifier; for a child supervisor this recursively kills and
	// re-initializes its own subjects (see childSupervisorSubject.Reset).
	Reset(ctx context.Context, newBcast Broadcast) (Supervised, error)
	// Launch spawns the subject's run loop on its own goroutine and
	// returns a handle for awaiting its completion.
	Launch(ctx context.Context) RunningHandle
}

// childSupervisorSubject adapts a *Supervisor to the Supervised contract,
// so that supervisors can be nested inside one another uniformly with
// worker groups.
type childSupervisorSubject struct {
	sup *Supervisor
}

// AsSupervised wraps a child Supervisor so it can be deployed into a parent
// Supervisor's order.
func AsSupervised(sup *Supervisor) Supervised {
	return &childSupervisorSubject{sup: sup}
}

func (c *childSupervisorSubject) ID() Identifier          { return c.sup.identity }
func (c *childSupervisorSubject) Broadcast() Broadcast    { return c.sup.bcast }
func (c *childSupervisorSubject) Callbacks() Callbacks    { return c.sup.callbacks }

func (c *childSupervisorSubject) Reset(ctx context.Context, newBcast Broadcast) (Supervised, error) {
	fresh, err := c.sup.resetSelf(ctx, newBcast)
	if err != nil {
		return nil, err
	}
	return &childSupervisorSubject{sup: fresh}, nil
}

func (c *childSupervisorSubject) Launch(ctx context.Context) RunningHandle {
	return c.sup.launch(ctx)
}
