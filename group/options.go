package group

import "github.com/oakhollow/supervise/supervisor"

type config struct {
	callbacks supervisor.Callbacks
}

// Option configures a Group at construction time.
type Option interface {
	apply(*config)
}

type callbacksOption struct{ callbacks supervisor.Callbacks }

func (o callbacksOption) apply(c *config) { c.callbacks = o.callbacks }

// WithCallbacks attaches lifecycle hooks the owning supervisor invokes
// around this group's start/stop/restart transitions.
func WithCallbacks(cb supervisor.Callbacks) Option {
	return callbacksOption{callbacks: cb}
}
