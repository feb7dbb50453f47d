package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arunsworld/nursery"

	"github.com/oakhollow/supervise/internal/obslog"
	"github.com/oakhollow/supervise/supervisor"
)

// System is the process-wide supervision tree root. A process constructs
// exactly one: Run builds the system supervisor, starts it, and blocks
// until ctx is cancelled or the system supervisor itself escalates a fault
// it could not recover from.
type System struct {
	cfg config

	mu      sync.Mutex
	ref     supervisor.SupervisorRef
	running bool
}

// New constructs a System. WithName is required; Run returns ErrNameEmpty
// without it.
func New(opts ...Option) *System {
	cfg := config{
		logger: obslog.Discard(),
	}
	for _, o := range opts {
		o.apply(&cfg)
	}
	return &System{cfg: cfg}
}

// Run builds the system supervisor, starts it, and blocks until ctx is
// cancelled or the supervisor exits on its own (an unrecovered fault
// escalated all the way to the root). It runs the supervisor's control loop
// and an optional liveness heartbeat concurrently, in the style of
// nursery.RunConcurrentlyWithContext: both are cancelled together the
// moment either one returns.
func (s *System) Run(ctx context.Context) error {
	if s.cfg.name == "" {
		return ErrNameEmpty
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	sup := supervisor.NewSystem(
		supervisor.WithStrategy(s.cfg.strategy),
		supervisor.WithCallbacks(s.cfg.callbacks),
	)
	s.ref = supervisor.SystemRef(sup)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	subject := supervisor.AsSupervised(sup)
	handle := subject.Launch(ctx)
	if err := subject.Broadcast().Send(ctx, supervisor.Start{}); err != nil {
		return fmt.Errorf("runtime: starting system supervisor: %w", err)
	}

	s.cfg.logger.InfoContext(ctx, "system started", "name", s.cfg.name)

	supervise := func(ctx context.Context, errc chan error) {
		_, ok := handle.Await(ctx)
		if !ok {
			errc <- ctx.Err()
			return
		}
		errc <- nil
	}

	tasks := []func(context.Context, chan error){supervise}
	if s.cfg.heartbeat > 0 {
		tasks = append(tasks, s.heartbeatTask())
	}

	err := nursery.RunConcurrentlyWithContext(ctx, tasks...)
	s.cfg.logger.InfoContext(ctx, "system stopped", "name", s.cfg.name)
	return err
}

func (s *System) heartbeatTask() func(context.Context, chan error) {
	return func(ctx context.Context, errc chan error) {
		ticker := time.NewTicker(s.cfg.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				errc <- nil
				return
			case <-ticker.C:
				s.cfg.logger.Debug("system heartbeat", "name", s.cfg.name)
			}
		}
	}
}

// currentRef returns the system's internal SupervisorRef once running, or
// ErrNotRunning before Run starts or after it returns.
func (s *System) currentRef() (supervisor.SupervisorRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return supervisor.SupervisorRef{}, ErrNotRunning
	}
	return s.ref, nil
}

// DeployChildSupervisor deploys a new top-level child supervisor and
// returns a ref to it. Safe to call concurrently with Run.
func (s *System) DeployChildSupervisor(ctx context.Context, configure func(*supervisor.Supervisor), opts ...supervisor.Option) (supervisor.SupervisorRef, error) {
	ref, err := s.currentRef()
	if err != nil {
		return supervisor.SupervisorRef{}, err
	}
	return ref.DeployChildSupervisor(ctx, configure, opts...)
}

// DeployChildGroup deploys a top-level worker group built by build.
func (s *System) DeployChildGroup(ctx context.Context, build func(supervisor.Broadcast) supervisor.Supervised, opts ...supervisor.Option) error {
	ref, err := s.currentRef()
	if err != nil {
		return err
	}
	return ref.DeployChildGroup(ctx, build, opts...)
}

// Broadcast fans payload out to every top-level subject.
func (s *System) Broadcast(ctx context.Context, payload any) error {
	ref, err := s.currentRef()
	if err != nil {
		return err
	}
	return ref.Broadcast(ctx, payload)
}

// Stop requests a graceful shutdown of the entire system.
func (s *System) Stop(ctx context.Context) error {
	ref, err := s.currentRef()
	if err != nil {
		return err
	}
	return ref.Stop(ctx)
}

// Kill requests an immediate shutdown of the entire system.
func (s *System) Kill(ctx context.Context) error {
	ref, err := s.currentRef()
	if err != nil {
		return err
	}
	return ref.Kill(ctx)
}

// Logger returns the logger configured via WithLogger (or the discarding
// default), for callers that want to share it with the components they
// deploy under the system.
func (s *System) Logger() *slog.Logger {
	return s.cfg.logger
}
