package supervisor

// launchedEntry is the value stored in registry.launched: the subject's
// ordinal (its index in order) and a handle for awaiting its completion.
type launchedEntry struct {
	ordinal int
	handle  RunningHandle
}

// registry is the Ordered Subject Registry: three disjoint collections
// keyed by identifier — launched, stopped, killed — plus the order
// sequence giving deployment order. It enforces the invariants from
// spec.md §3: for every identifier in order, exactly one of the three
// collections contains it, and launched's stored ordinal always equals the
// identifier's index in order.
//
// A registry is only ever touched from its owning supervisor's run loop, so
// it carries no internal locking.
type registry struct {
	order   []Identifier
	launched map[Identifier]launchedEntry
	stopped  map[Identifier]Supervised
	killed   map[Identifier]Supervised
}

func newRegistry() *registry {
	return &registry{
		launched: make(map[Identifier]launchedEntry),
		stopped:  make(map[Identifier]Supervised),
		killed:   make(map[Identifier]Supervised),
	}
}

// append adds id to the end of order and records it as launched at the new
// ordinal (len(order)-1), as happens on Deploy and after every relaunch
// that extends the order (bulk restart's rebuild phase).
func (r *registry) append(id Identifier, handle RunningHandle) {
	ordinal := len(r.order)
	r.order = append(r.order, id)
	r.launched[id] = launchedEntry{ordinal: ordinal, handle: handle}
}

// insertLaunched records id as launched at a pre-existing ordinal, used by
// one-for-one recovery which overwrites order[ordinal] in place rather than
// appending.
func (r *registry) insertLaunched(id Identifier, ordinal int, handle RunningHandle) {
	r.launched[id] = launchedEntry{ordinal: ordinal, handle: handle}
	if ordinal >= 0 && ordinal < len(r.order) {
		r.order[ordinal] = id
	}
}

// removeLaunched removes id from launched and returns its entry, if present.
func (r *registry) removeLaunched(id Identifier) (launchedEntry, bool) {
	e, ok := r.launched[id]
	if ok {
		delete(r.launched, id)
	}
	return e, ok
}

func (r *registry) moveToStopped(id Identifier, subject Supervised) {
	r.stopped[id] = subject
}

func (r *registry) moveToKilled(id Identifier, subject Supervised) {
	r.killed[id] = subject
}

// takeFromAnyDormant removes id from stopped if present, else from killed,
// and reports which collection it came from. Used during restart: a
// subject being rebuilt may have arrived at its dormant state either via an
// earlier Stop or via this restart's own Kill fan-out.
func (r *registry) takeFromAnyDormant(id Identifier) (subject Supervised, wasKilled bool, ok bool) {
	if s, found := r.stopped[id]; found {
		delete(r.stopped, id)
		return s, false, true
	}
	if s, found := r.killed[id]; found {
		delete(r.killed, id)
		return s, true, true
	}
	return nil, false, false
}

// ordinalOf returns the ordinal of id among launched subjects.
func (r *registry) ordinalOf(id Identifier) (int, bool) {
	e, ok := r.launched[id]
	if !ok {
		return 0, false
	}
	return e.ordinal, true
}

// idsFrom returns the identifiers in order from index start (inclusive) to
// the end, in deployment order.
func (r *registry) idsFrom(start int) []Identifier {
	if start < 0 {
		start = 0
	}
	if start >= len(r.order) {
		return nil
	}
	out := make([]Identifier, len(r.order)-start)
	copy(out, r.order[start:])
	return out
}

// truncateFrom drops order[start:] and returns the removed identifiers, as
// the first step of rebuilding a restarted range.
func (r *registry) truncateFrom(start int) []Identifier {
	if start < 0 {
		start = 0
	}
	if start >= len(r.order) {
		return nil
	}
	removed := append([]Identifier(nil), r.order[start:]...)
	r.order = r.order[:start]
	return removed
}

// removeIdentifier deletes id from order, wherever it occurs, preserving
// the relative order of the remaining identifiers. It does not remove id
// from launched/stopped/killed; callers must do that first. The launched
// entries that follow the removed position are renumbered so that their
// ordinals keep matching their index in order. Used by Prune.
func (r *registry) removeIdentifier(id Identifier) {
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			for j := i; j < len(r.order); j++ {
				if e, ok := r.launched[r.order[j]]; ok {
					e.ordinal = j
					r.launched[r.order[j]] = e
				}
			}
			return
		}
	}
}

// len returns the number of identifiers currently in the deployment order.
func (r *registry) len() int {
	return len(r.order)
}
