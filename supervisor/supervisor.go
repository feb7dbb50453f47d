package supervisor

import "context"

// Supervisor is a node in the supervision tree: it owns an ordered registry
// of subjects (child supervisors or worker groups), a restart strategy, and
// a single control inbox that serializes every state transition onto one
// goroutine. There is never more than one goroutine touching a Supervisor's
// unexported fields at a time — the run loop is the only writer.
type Supervisor struct {
	identity  Identifier
	bcast     Broadcast
	strategy  Strategy
	callbacks Callbacks
	isSystem  bool

	reg          *registry
	preStartMsgs []ControlMessage
	started      bool

	factory func(parent Broadcast) Broadcast
}

// New constructs a root supervisor: one with no parent to notify of its own
// Stopped/Faulted transitions. Use a SupervisorRef's DeployChildSupervisor to
// create one nested inside another.
func New(opts ...Option) *Supervisor {
	return newAttached(nil, opts...)
}

// NewSystem constructs the distinguished root supervisor a runtime process
// hosts exactly one of. It behaves like any other supervisor, except that
// isSystem makes Ref refuse to hand out a SupervisorRef for it; the runtime
// package reaches it through SystemRef instead (see SPEC_FULL.md §4.5).
func NewSystem(opts ...Option) *Supervisor {
	s := newAttached(nil, opts...)
	s.isSystem = true
	return s
}

func newAttached(parent Broadcast, opts ...Option) *Supervisor {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(&cfg)
	}
	bcast := cfg.broadcastFactory(parent)
	return &Supervisor{
		identity:  bcast.ID(),
		bcast:     bcast,
		strategy:  cfg.strategy,
		callbacks: cfg.callbacks,
		reg:       newRegistry(),
		factory:   cfg.broadcastFactory,
	}
}

// Ref returns a SupervisorRef addressing s. It returns ErrSystemRefDenied
// for the distinguished system supervisor returned by NewSystem: the
// runtime package drives that one directly, through AsSupervised(s) and
// SystemRef, and never hands a ref to it out to application code.
func (s *Supervisor) Ref() (SupervisorRef, error) {
	if s.isSystem {
		return SupervisorRef{}, ErrSystemRefDenied
	}
	return newRef(s.bcast), nil
}

// SystemRef returns a SupervisorRef addressing s without the isSystem
// check Ref applies. It exists for the runtime package, which owns the one
// NewSystem supervisor a process hosts and must be able to deploy subjects
// under it; application code reaches a Supervisor only for subjects it
// built with New, never NewSystem, so this function is not reachable from
// application code through any path the runtime package exposes.
func SystemRef(s *Supervisor) SupervisorRef {
	return newRef(s.bcast)
}

// IsSystem reports whether s was constructed with NewSystem.
func (s *Supervisor) IsSystem() bool { return s.isSystem }

type supervisorResult struct {
	subject Supervised
	ok      bool
}

type supervisorHandle struct {
	done chan supervisorResult
}

func (h *supervisorHandle) Await(ctx context.Context) (Supervised, bool) {
	select {
	case r := <-h.done:
		return r.subject, r.ok
	case <-ctx.Done():
		return nil, false
	}
}

// launch spawns the supervisor's run loop on its own goroutine.
func (s *Supervisor) launch(ctx context.Context) RunningHandle {
	h := &supervisorHandle{done: make(chan supervisorResult, 1)}
	go func() {
		h.done <- s.run(ctx)
	}()
	return h
}

// resetSelf implements Supervised.Reset for a nested supervisor: spec.md
// §4.6 defines resetting a supervisor as the bulk restart procedure applied
// to its full deployment order, carried out against a fresh Supervisor that
// takes over newBcast. Every subject currently beneath s is killed, reset,
// and relaunched into fresh's own registry in its original order — the
// subtree survives the restart, it does not get discarded with it. fresh
// keeps started false so the next Start it receives, from whichever
// supervisor now holds newBcast, re-initiates its lifecycle and only then
// forwards Start down to the rebuilt children.
func (s *Supervisor) resetSelf(ctx context.Context, newBcast Broadcast) (*Supervisor, error) {
	s.killFrom(ctx, 0)
	ids := s.reg.truncateFrom(0)
	entries := takeDormantEntries(s.reg, ids)

	fresh := &Supervisor{
		identity:  newBcast.ID(),
		bcast:     newBcast,
		strategy:  s.strategy,
		callbacks: s.callbacks,
		reg:       newRegistry(),
		factory:   s.factory,
	}

	if err := rebuildRange(ctx, fresh, entries); err != nil {
		fresh.killFrom(ctx, 0)
		return nil, err
	}
	return fresh, nil
}

// run is the supervisor's single control loop: every state transition in
// spec.md §4.3's table happens here, on this one goroutine.
func (s *Supervisor) run(ctx context.Context) supervisorResult {
	for {
		select {
		case msg, open := <-s.bcast.Inbox():
			if !open {
				s.killFrom(ctx, 0)
				s.bcast.NotifyFaulted(ctx)
				return supervisorResult{subject: AsSupervised(s), ok: true}
			}
			if result, done := s.dispatch(ctx, msg); done {
				return result
			}
		case <-ctx.Done():
			s.killFrom(ctx, 0)
			s.bcast.NotifyFaulted(ctx)
			return supervisorResult{subject: AsSupervised(s), ok: true}
		}
	}
}

func (s *Supervisor) dispatch(ctx context.Context, msg ControlMessage) (supervisorResult, bool) {
	if !s.started {
		if _, isStart := msg.(Start); isStart {
			s.started = true
			_ = s.bcast.SendToAll(ctx, Start{})
			buffered := s.preStartMsgs
			s.preStartMsgs = nil
			for _, m := range buffered {
				if result, done := s.handle(ctx, m); done {
					return result, true
				}
			}
			return supervisorResult{}, false
		}
		s.preStartMsgs = append(s.preStartMsgs, msg)
		return supervisorResult{}, false
	}
	return s.handle(ctx, msg)
}

func (s *Supervisor) handle(ctx context.Context, msg ControlMessage) (supervisorResult, bool) {
	switch m := msg.(type) {
	case Start:
		log("received Start while already started; ignoring: " + s.identity.String())
		return supervisorResult{}, false
	case Stop:
		s.stopFrom(ctx, m.From)
		s.bcast.NotifyStopped(ctx)
		return supervisorResult{subject: AsSupervised(s), ok: true}, true
	case Kill:
		s.killFrom(ctx, m.From)
		s.bcast.NotifyStopped(ctx)
		return supervisorResult{subject: AsSupervised(s), ok: true}, true
	case Deploy:
		s.deploy(ctx, m.Subject)
		return supervisorResult{}, false
	case SuperviseWith:
		s.strategy = m.Strategy
		return supervisorResult{}, false
	case Message:
		_ = s.bcast.SendToAll(ctx, m)
		return supervisorResult{}, false
	case Stopped:
		s.handleStopped(ctx, m.ID)
		return supervisorResult{}, false
	case Faulted:
		if err := traceRecover(ctx, s, m.ID, func(ctx context.Context) error {
			return s.recover(ctx, m.ID)
		}); err != nil {
			log("restart failed, escalating: " + err.Error())
			s.killFrom(ctx, 0)
			s.bcast.NotifyFaulted(ctx)
			return supervisorResult{ok: false}, true
		}
		return supervisorResult{}, false
	case Prune:
		s.prune(ctx, m.ID)
		return supervisorResult{}, false
	default:
		log("ignoring unrecognised control message")
		return supervisorResult{}, false
	}
}

// deploy adopts subject: registers its broadcast, starts it immediately if
// this supervisor has already passed its own Start, launches it, and
// appends it to the deployment order.
func (s *Supervisor) deploy(ctx context.Context, subject Supervised) {
	invoke(subject.Callbacks().BeforeStart, ctx, subject.ID())
	s.bcast.Register(subject.Broadcast())
	if s.started {
		_ = subject.Broadcast().Send(ctx, Start{})
	}
	handle := subject.Launch(ctx)
	s.reg.append(subject.ID(), handle)
}

// stopFrom requests a graceful shutdown of every subject from ordinal from
// onward, then drains their handles in deployment order.
func (s *Supervisor) stopFrom(ctx context.Context, from int) {
	ids := s.reg.idsFrom(from)
	if len(ids) == 0 {
		return
	}
	if from <= 0 {
		_ = s.bcast.StopAll(ctx)
	} else {
		for _, id := range ids {
			_ = s.bcast.SendToChild(ctx, id, Stop{From: 0})
		}
	}
	s.drainLaunched(ctx, ids, true)
}

// killFrom is stopFrom's immediate counterpart: no graceful handshake, and
// drained subjects land in killed rather than stopped.
func (s *Supervisor) killFrom(ctx context.Context, from int) {
	ids := s.reg.idsFrom(from)
	if len(ids) == 0 {
		return
	}
	if from <= 0 {
		_ = s.bcast.KillAll(ctx)
	} else {
		for _, id := range ids {
			_ = s.bcast.SendToChild(ctx, id, Kill{From: 0})
		}
	}
	s.drainLaunched(ctx, ids, false)
}

type drainedSubject struct {
	subject Supervised
	ok      bool
}

// drainLaunched awaits every launched handle named in ids concurrently, then
// delivers the results to the registry in ids order (deployment order),
// regardless of which handle actually finished first. graceful selects
// between the stopped path (after-stop callback, lands in stopped) and the
// kill path (no callback, lands in killed).
func (s *Supervisor) drainLaunched(ctx context.Context, ids []Identifier, graceful bool) {
	results := make(chan struct {
		id Identifier
		drainedSubject
	}, len(ids))

	pending := 0
	for _, id := range ids {
		entry, ok := s.reg.removeLaunched(id)
		if !ok {
			continue
		}
		pending++
		go func(id Identifier, handle RunningHandle) {
			subject, ok := handle.Await(ctx)
			results <- struct {
				id Identifier
				drainedSubject
			}{id, drainedSubject{subject: subject, ok: ok}}
		}(id, entry.handle)
	}

	collected := make(map[Identifier]drainedSubject, pending)
	for i := 0; i < pending; i++ {
		r := <-results
		collected[r.id] = r.drainedSubject
	}

	for _, id := range ids {
		r, ok := collected[id]
		if !ok {
			continue
		}
		if !r.ok || r.subject == nil {
			s.bcast.Unregister(id)
			s.reg.moveToKilled(id, newTombstone(id))
			continue
		}
		if graceful {
			invoke(r.subject.Callbacks().AfterStop, ctx, id)
			s.bcast.Unregister(id)
			s.reg.moveToStopped(id, r.subject)
		} else {
			s.bcast.Unregister(id)
			s.reg.moveToKilled(id, r.subject)
		}
	}
}

// handleStopped processes a Stopped notification raised by a subject that
// terminated gracefully on its own (not as part of a Stop/Kill fan-out this
// supervisor initiated): it awaits the subject's handle, invokes after-stop,
// unregisters it, and records it as stopped.
func (s *Supervisor) handleStopped(ctx context.Context, id Identifier) {
	entry, ok := s.reg.removeLaunched(id)
	if !ok {
		log("stopped notification for unknown subject: " + id.String())
		return
	}
	subject, ok := entry.handle.Await(ctx)
	if !ok || subject == nil {
		s.bcast.Unregister(id)
		s.reg.moveToKilled(id, newTombstone(id))
		return
	}
	invoke(subject.Callbacks().AfterStop, ctx, id)
	s.bcast.Unregister(id)
	s.reg.moveToStopped(id, subject)
}

// prune kills and removes a single identifier from the deployment order
// without restarting it, per SPEC_FULL.md §9.
func (s *Supervisor) prune(ctx context.Context, id Identifier) {
	if _, ok := s.reg.ordinalOf(id); !ok {
		log("prune requested for unknown subject: " + id.String())
		return
	}
	_ = s.bcast.SendToChild(ctx, id, Kill{From: 0})
	entry, ok := s.reg.removeLaunched(id)
	if ok {
		entry.handle.Await(ctx)
	}
	s.bcast.Unregister(id)
	s.reg.removeIdentifier(id)
}

// tombstoneSubject stands in for a subject whose handle vanished without a
// value (SPEC_FULL.md §9): it preserves the registry's union invariant
// while ensuring any later attempt to reset or relaunch it fails loudly.
type tombstoneSubject struct {
	id Identifier
}

func newTombstone(id Identifier) Supervised { return &tombstoneSubject{id: id} }

func (t *tombstoneSubject) ID() Identifier       { return t.id }
func (t *tombstoneSubject) Broadcast() Broadcast { return nil }
func (t *tombstoneSubject) Callbacks() Callbacks { return Callbacks{} }

func (t *tombstoneSubject) Reset(ctx context.Context, newBcast Broadcast) (Supervised, error) {
	return nil, ErrSubjectVanished
}

func (t *tombstoneSubject) Launch(ctx context.Context) RunningHandle {
	return nil
}
