package supervisor

// config collects the knobs New, NewSystem and
// SupervisorRef.DeployChildSupervisor accept via functional options,
// mirroring the Option/apply pattern used throughout this codebase's
// configuration surfaces.
type config struct {
	strategy         Strategy
	callbacks        Callbacks
	broadcastFactory func(parent Broadcast) Broadcast
}

func defaultConfig() config {
	return config{
		strategy:         OneForOne,
		broadcastFactory: func(parent Broadcast) Broadcast { return NewChannelBroadcast(parent) },
	}
}

// Option configures a Supervisor at construction time.
type Option interface {
	apply(*config)
}

type strategyOption struct{ strategy Strategy }

func (o strategyOption) apply(c *config) { c.strategy = o.strategy }

// WithStrategy sets the supervisor's initial restart strategy. Defaults to
// OneForOne.
func WithStrategy(s Strategy) Option {
	return strategyOption{strategy: s}
}

type callbacksOption struct{ callbacks Callbacks }

func (o callbacksOption) apply(c *config) { c.callbacks = o.callbacks }

// WithCallbacks attaches lifecycle hooks to the supervisor itself (invoked
// when the supervisor is deployed as a child subject of another supervisor).
func WithCallbacks(cb Callbacks) Option {
	return callbacksOption{callbacks: cb}
}

type broadcastFactoryOption struct {
	factory func(parent Broadcast) Broadcast
}

func (o broadcastFactoryOption) apply(c *config) { c.broadcastFactory = o.factory }

// WithBroadcastFactory overrides how the supervisor constructs its own
// Broadcast, parented to parent (nil for a root supervisor). Use this to
// back a supervisor with transport/natsbroadcast instead of the default
// in-process channel transport.
func WithBroadcastFactory(f func(parent Broadcast) Broadcast) Option {
	return broadcastFactoryOption{factory: f}
}
