package group

import (
	"context"
	"log/slog"

	"github.com/oakhollow/supervise/internal/obslog"
	"github.com/oakhollow/supervise/supervisor"
)

// Factory builds a fresh Worker instance. Group calls it each time it is
// launched: once for the first run, and once for every fresh Group that
// Reset produces after a restart (Reset itself does not call it), so a Factory
// must not close over mutable state it expects to survive a restart — that
// defeats the point of resetting.
type Factory func() Worker

// Group adapts a Factory of Workers to the supervision tree's Supervised
// contract: from a supervisor's point of view it is an opaque leaf subject,
// addressed the same way a nested supervisor is.
type Group struct {
	id        supervisor.Identifier
	bcast     supervisor.Broadcast
	callbacks supervisor.Callbacks
	newWorker Factory
	log       *slog.Logger
}

// New constructs a Group bound to bcast (already parented to whatever
// supervisor will deploy it) that runs workers produced by newWorker.
func New(bcast supervisor.Broadcast, newWorker Factory, opts ...Option) *Group {
	cfg := config{}
	for _, o := range opts {
		o.apply(&cfg)
	}
	return &Group{
		id:        bcast.ID(),
		bcast:     bcast,
		callbacks: cfg.callbacks,
		newWorker: newWorker,
		log:       obslog.Discard(),
	}
}

// WithLogger attaches a logger the group's run loop reports ignored control
// messages, rejected lifecycle transitions, init failures and panics to.
func (g *Group) WithLogger(l *slog.Logger) *Group {
	g.log = l
	return g
}

func (g *Group) ID() supervisor.Identifier       { return g.id }
func (g *Group) Broadcast() supervisor.Broadcast { return g.bcast }
func (g *Group) Callbacks() supervisor.Callbacks { return g.callbacks }

// Reset produces a fresh Group bound to newBcast, running a freshly-built
// Worker from the same Factory when it is launched. The outgoing Worker's
// state is discarded — its run has already ended, by a fault or by the
// supervisor's Kill, before Reset is called.
func (g *Group) Reset(ctx context.Context, newBcast supervisor.Broadcast) (supervisor.Supervised, error) {
	fresh := New(newBcast, g.newWorker, WithCallbacks(g.callbacks))
	fresh.log = g.log
	return fresh, nil
}

type groupResult struct {
	subject supervisor.Supervised
	ok      bool
}

type groupHandle struct {
	done chan groupResult
}

func (h *groupHandle) Await(ctx context.Context) (supervisor.Supervised, bool) {
	select {
	case r := <-h.done:
		return r.subject, r.ok
	case <-ctx.Done():
		return nil, false
	}
}

// Launch spawns the group's run loop on its own goroutine.
func (g *Group) Launch(ctx context.Context) supervisor.RunningHandle {
	h := &groupHandle{done: make(chan groupResult, 1)}
	go func() {
		h.done <- g.run(ctx)
	}()
	return h
}

func (g *Group) run(ctx context.Context) (result groupResult) {
	worker := g.newWorker()
	fsm := newLifecycle()

	// A single deferred closure handles every exit path in the order a
	// panic unwind actually runs them: recover first, and only then
	// terminate the worker and reconcile the lifecycle state and the result
	// this function yields to its RunningHandle. Splitting these across
	// several defers would run them in the wrong order on a panic — the
	// fsm/result bookkeeping would fire before recover ever saw it.
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("recovered panic in worker", "id", g.id.String(), "panic", r)
			if err := fsm.FireCtx(ctx, triggerFault); err != nil {
				g.log.Debug("lifecycle transition rejected", "id", g.id.String(), "trigger", triggerFault, "error", err)
			}
			g.terminate(ctx, worker)
			g.bcast.NotifyFaulted(ctx)
			result = groupResult{subject: g, ok: true}
			return
		}
		g.terminate(ctx, worker)
		if state, err := fsm.State(ctx); err == nil && state == stateRunning {
			if err := fsm.FireCtx(ctx, triggerStop); err == nil {
				_ = fsm.FireCtx(ctx, triggerStopped)
			}
		}
	}()

	if err := fsm.FireCtx(ctx, triggerStart); err != nil {
		g.log.Debug("lifecycle transition rejected", "id", g.id.String(), "trigger", triggerStart, "error", err)
	}

	if initialiser, ok := worker.(Initialiser); ok {
		if err := initialiser.Init(ctx); err != nil {
			g.log.Error("worker init failed", "id", g.id.String(), "error", err)
			_ = fsm.FireCtx(ctx, triggerFault)
			g.bcast.NotifyFaulted(ctx)
			return groupResult{subject: g, ok: true}
		}
	}

	started := false
	var preStart []supervisor.ControlMessage

	for {
		select {
		case ctrl, open := <-g.bcast.Inbox():
			if !open {
				g.bcast.NotifyFaulted(ctx)
				return groupResult{subject: g, ok: true}
			}
			if !started {
				if _, isStart := ctrl.(supervisor.Start); isStart {
					started = true
					buffered := preStart
					preStart = nil
					for _, m := range buffered {
						if result, done := g.handleControl(ctx, m, worker); done {
							return result
						}
					}
					continue
				}
				preStart = append(preStart, ctrl)
				continue
			}
			if result, done := g.handleControl(ctx, ctrl, worker); done {
				return result
			}
		case envelope, open := <-worker.Mailbox():
			if !open {
				return groupResult{subject: g, ok: true}
			}
			if !started {
				continue
			}
			switch envelope.Control {
			case MessageStop:
				return groupResult{subject: g, ok: true}
			default:
				worker.Handle(ctx, envelope.Payload)
			}
		case <-ctx.Done():
			g.bcast.NotifyFaulted(ctx)
			return groupResult{subject: g, ok: true}
		}
	}
}

func (g *Group) handleControl(ctx context.Context, msg supervisor.ControlMessage, worker Worker) (groupResult, bool) {
	switch m := msg.(type) {
	case supervisor.Stop:
		g.bcast.NotifyStopped(ctx)
		return groupResult{subject: g, ok: true}, true
	case supervisor.Kill:
		return groupResult{subject: g, ok: true}, true
	case supervisor.Message:
		// A worker group is a leaf: a broadcast payload reaching it is
		// handed straight to the worker, the same as its own mailbox.
		worker.Handle(ctx, m.Payload)
		return groupResult{}, false
	default:
		g.log.Debug("ignoring control message addressed to a worker group", "id", g.id.String())
		return groupResult{}, false
	}
}

func (g *Group) terminate(ctx context.Context, worker Worker) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("recovered panic terminating worker", "id", g.id.String(), "panic", r)
		}
	}()
	if terminator, ok := worker.(Terminator); ok {
		terminator.Terminate(ctx)
	}
}
