package supervisor

import "context"

// Callbacks are the lifecycle hooks a supervisor invokes on a subject (or
// that a parent invokes on this supervisor) at the four points in its life
// where behaviour might need to observe or react to a transition. Every
// hook is optional; an unset hook is a no-op. Hooks execute on the owning
// supervisor's run loop and must not block.
type Callbacks struct {
	// BeforeStart runs just before a subject is registered and spawned
	// for the first time, or before it is relaunched from the stopped
	// path during a bulk restart.
	BeforeStart func(ctx context.Context, id Identifier)
	// AfterStop runs after a subject's running task has terminated
	// gracefully in response to Stop.
	AfterStop func(ctx context.Context, id Identifier)
	// BeforeRestart runs on a killed subject before it is reset.
	BeforeRestart func(ctx context.Context, id Identifier)
	// AfterRestart runs on a killed subject after reset completes and
	// before it is relaunched.
	AfterRestart func(ctx context.Context, id Identifier)
}

func (c Callbacks) beforeStart(ctx context.Context, id Identifier) {
	invoke(c.BeforeStart, ctx, id)
}

func (c Callbacks) afterStop(ctx context.Context, id Identifier) {
	invoke(c.AfterStop, ctx, id)
}

func (c Callbacks) beforeRestart(ctx context.Context, id Identifier) {
	invoke(c.BeforeRestart, ctx, id)
}

func (c Callbacks) afterRestart(ctx context.Context, id Identifier) {
	invoke(c.AfterRestart, ctx, id)
}

// invoke runs a callback hook and isolates it from the supervisor's own
// control loop: a misbehaving hook must never corrupt registry invariants.
func invoke(hook func(context.Context, Identifier), ctx context.Context, id Identifier) {
	if hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log("recovered panic in lifecycle callback: " + id.String())
		}
	}()
	hook(ctx, id)
}
