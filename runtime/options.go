package runtime

import (
	"log/slog"
	"time"

	"github.com/oakhollow/supervise/supervisor"
)

type config struct {
	name      string
	strategy  supervisor.Strategy
	callbacks supervisor.Callbacks
	logger    *slog.Logger
	heartbeat time.Duration
}

// Option configures a System at construction time.
type Option interface {
	apply(*config)
}

type nameOption struct{ name string }

func (o nameOption) apply(c *config) { c.name = o.name }

// WithName sets the system's name, used in log output. Required.
func WithName(name string) Option { return nameOption{name: name} }

type strategyOption struct{ strategy supervisor.Strategy }

func (o strategyOption) apply(c *config) { c.strategy = o.strategy }

// WithStrategy sets the system supervisor's restart strategy. Defaults to
// supervisor.OneForOne.
func WithStrategy(s supervisor.Strategy) Option { return strategyOption{strategy: s} }

type callbacksOption struct{ callbacks supervisor.Callbacks }

func (o callbacksOption) apply(c *config) { c.callbacks = o.callbacks }

// WithCallbacks attaches lifecycle hooks to the system supervisor itself.
func WithCallbacks(cb supervisor.Callbacks) Option { return callbacksOption{callbacks: cb} }

type loggerOption struct{ logger *slog.Logger }

func (o loggerOption) apply(c *config) { c.logger = o.logger }

// WithLogger sets the structured logger Run reports startup and shutdown
// events, and heartbeat lines when enabled, to. Defaults to a discarding
// logger; see
// internal/obslog.New for the library's own console logger.
func WithLogger(l *slog.Logger) Option { return loggerOption{logger: l} }

type heartbeatOption struct{ interval time.Duration }

func (o heartbeatOption) apply(c *config) { c.heartbeat = o.interval }

// WithHeartbeat makes Run log a liveness line on this interval for as long
// as the system is running. A zero interval (the default) disables it.
func WithHeartbeat(interval time.Duration) Option { return heartbeatOption{interval: interval} }
