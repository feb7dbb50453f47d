package supervisor

import "context"

// SupervisorRef is a cheap, cloneable handle to a running supervisor: an
// identifier paired with a send-only endpoint onto that supervisor's inbox.
// Holding a SupervisorRef never blocks the supervisor it addresses; every
// operation here is just a Send of the matching ControlMessage.
type SupervisorRef struct {
	id    Identifier
	bcast Broadcast
}

func newRef(bcast Broadcast) SupervisorRef {
	return SupervisorRef{id: bcast.ID(), bcast: bcast}
}

// ID returns the identifier of the supervisor this ref addresses.
func (r SupervisorRef) ID() Identifier { return r.id }

// DeployChildSupervisor builds a new child Supervisor, lets configure adjust
// it before it is launched, and deploys it under the supervisor r addresses.
// configure may be nil. The returned ref addresses the new child.
func (r SupervisorRef) DeployChildSupervisor(ctx context.Context, configure func(*Supervisor), opts ...Option) (SupervisorRef, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(&cfg)
	}
	bcast := cfg.broadcastFactory(r.bcast)
	child := &Supervisor{
		identity:  bcast.ID(),
		bcast:     bcast,
		strategy:  cfg.strategy,
		callbacks: cfg.callbacks,
		reg:       newRegistry(),
		factory:   cfg.broadcastFactory,
	}
	if configure != nil {
		configure(child)
	}
	if err := r.bcast.Send(ctx, Deploy{Subject: AsSupervised(child)}); err != nil {
		return SupervisorRef{}, err
	}
	return newRef(child.bcast), nil
}

// DeployChildGroup builds a worker group — typically via group.New — bound
// to a fresh Broadcast parented to the supervisor r addresses, and deploys
// it. build receives the already-constructed Broadcast rather than a bare
// parent, matching the argument Supervised.Reset later passes it on restart.
func (r SupervisorRef) DeployChildGroup(ctx context.Context, build func(bcast Broadcast) Supervised, opts ...Option) error {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(&cfg)
	}
	bcast := cfg.broadcastFactory(r.bcast)
	return r.bcast.Send(ctx, Deploy{Subject: build(bcast)})
}

// SetStrategy replaces the restart strategy of the supervisor r addresses.
func (r SupervisorRef) SetStrategy(ctx context.Context, s Strategy) error {
	return r.bcast.Send(ctx, SuperviseWith{Strategy: s})
}

// Broadcast fans payload out to every subject registered under the
// supervisor r addresses, with no acknowledgement.
func (r SupervisorRef) Broadcast(ctx context.Context, payload any) error {
	return r.bcast.Send(ctx, Message{Payload: payload})
}

// Stop requests a graceful shutdown of the supervisor r addresses and
// everything beneath it.
func (r SupervisorRef) Stop(ctx context.Context) error {
	return r.bcast.Send(ctx, Stop{From: 0})
}

// Kill requests an immediate shutdown of the supervisor r addresses and
// everything beneath it.
func (r SupervisorRef) Kill(ctx context.Context) error {
	return r.bcast.Send(ctx, Kill{From: 0})
}

// Prune removes a single subject identified by id from the supervisor r
// addresses, killing it without attempting a restart.
func (r SupervisorRef) Prune(ctx context.Context, id Identifier) error {
	return r.bcast.Send(ctx, Prune{ID: id})
}
