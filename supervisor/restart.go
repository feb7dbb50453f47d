package supervisor

import (
	"context"
	"fmt"
)

// recover is the restart engine's entry point, invoked when a Faulted
// notification names id. It dispatches on the supervisor's current
// strategy: OneForOne rebuilds only the faulted subject in place,
// OneForAll rebuilds the whole order, RestForOne rebuilds the faulted
// subject and everything deployed after it. A Faulted naming an id this
// supervisor does not recognize is itself a restart engine failure and
// escalates, per spec.md §7's "dormant subject missing" clause — it must
// never be treated as a harmless no-op.
func (s *Supervisor) recover(ctx context.Context, id Identifier) error {
	entry, ok := s.reg.removeLaunched(id)
	if !ok {
		return fmt.Errorf("%w: %w: %s", ErrRestartFailed, ErrUnknownSubject, id.String())
	}
	subject, ok := entry.handle.Await(ctx)
	if !ok || subject == nil {
		subject = newTombstone(id)
	}

	switch s.strategy {
	case OneForAll:
		return s.bulkRestart(ctx, 0, id, subject)
	case RestForOne:
		return s.bulkRestart(ctx, entry.ordinal, id, subject)
	default:
		return s.restartOne(ctx, id, entry.ordinal, subject)
	}
}

// restartOne resets a single faulted subject and relaunches it at the same
// ordinal, leaving the rest of the order untouched.
func (s *Supervisor) restartOne(ctx context.Context, id Identifier, ordinal int, subject Supervised) error {
	invoke(subject.Callbacks().BeforeRestart, ctx, id)
	fresh, err := subject.Reset(ctx, s.factory(s.bcast))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRestartFailed, err)
	}
	invoke(fresh.Callbacks().AfterRestart, ctx, fresh.ID())
	s.bcast.Register(fresh.Broadcast())
	if s.started {
		_ = fresh.Broadcast().Send(ctx, Start{})
	}
	handle := fresh.Launch(ctx)
	s.reg.insertLaunched(fresh.ID(), ordinal, handle)
	return nil
}

type dormantEntry struct {
	subject   Supervised
	wasKilled bool
}

type resetOutcome struct {
	dormantEntry
	fresh Supervised
	err   error
}

// takeDormantEntries removes each of ids from whichever of stopped/killed
// currently holds it, reporting which collection each came from. An id
// missing from both is a restart engine failure (spec.md §7); it is
// represented as a tombstone so the caller's callback/reset bookkeeping
// still has a uniform Supervised value to work with, and its Reset call
// will fail loudly rather than silently dropping the slot.
func takeDormantEntries(reg *registry, ids []Identifier) []dormantEntry {
	entries := make([]dormantEntry, len(ids))
	for i, id := range ids {
		subject, wasKilled, ok := reg.takeFromAnyDormant(id)
		if !ok {
			entries[i] = dormantEntry{subject: newTombstone(id), wasKilled: true}
			continue
		}
		entries[i] = dormantEntry{subject: subject, wasKilled: wasKilled}
	}
	return entries
}

// rebuildRange resets every entry concurrently and reinstalls each
// successfully reset subject into target, in entries order, regardless of
// which reset actually completed first. It implements spec.md §4.5's bulk
// restart steps 2–3 parametrized over the supervisor the rebuilt range is
// installed into, so the same logic serves both an in-place bulk restart
// (target is s itself) and a full subtree reset (target is the freshly
// constructed supervisor resetSelf returns).
//
// before-restart fires on the OLD, killed subject before its reset is even
// submitted; before-start (for a subject recovered from a prior graceful
// Stop) and after-restart (for one recovered from this restart's own Kill)
// fire on the fresh subject once its reset completes. This ordering — and
// which subject each hook sees — mirrors spec.md §4.5 step 2 exactly.
func rebuildRange(ctx context.Context, target *Supervisor, entries []dormantEntry) error {
	for _, e := range entries {
		if e.wasKilled {
			invoke(e.subject.Callbacks().BeforeRestart, ctx, e.subject.ID())
		}
	}

	results := make([]resetOutcome, len(entries))
	done := make(chan int, len(entries))
	for i, e := range entries {
		go func(i int, e dormantEntry) {
			fresh, err := e.subject.Reset(ctx, target.factory(target.bcast))
			results[i] = resetOutcome{dormantEntry: e, fresh: fresh, err: err}
			done <- i
		}(i, e)
	}
	for range entries {
		<-done
	}

	var firstErr error
	for _, r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		if r.fresh == nil {
			continue
		}
		id := r.fresh.ID()
		if r.wasKilled {
			invoke(r.fresh.Callbacks().AfterRestart, ctx, id)
		} else {
			invoke(r.fresh.Callbacks().BeforeStart, ctx, id)
		}
		target.bcast.Register(r.fresh.Broadcast())
		if target.started {
			_ = r.fresh.Broadcast().Send(ctx, Start{})
		}
		handle := r.fresh.Launch(ctx)
		target.reg.append(id, handle)
	}
	if firstErr != nil {
		return fmt.Errorf("%w: %w", ErrRestartFailed, firstErr)
	}
	return nil
}

// bulkRestart rebuilds every subject from ordinal start to the end of the
// deployment order: it kills whatever is still live in that range (the
// faulted subject, named by faultedID/faultedSubject, is already dormant),
// collects every now-dormant subject in the range from stopped or killed,
// and hands the range to rebuildRange to reset and reinstall in order.
func (s *Supervisor) bulkRestart(ctx context.Context, start int, faultedID Identifier, faultedSubject Supervised) error {
	s.reg.moveToKilled(faultedID, faultedSubject)
	s.killFrom(ctx, start)

	ids := s.reg.truncateFrom(start)
	if len(ids) == 0 {
		return nil
	}
	entries := takeDormantEntries(s.reg, ids)
	return rebuildRange(ctx, s, entries)
}
