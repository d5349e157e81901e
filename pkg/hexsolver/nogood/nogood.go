// Package nogood implements the nogood store and two-watched-literal
// index: a set of nogoods (conjunctions of signed literals forbidden
// by some model), with add/iterate, and tracking of which nogoods are
// currently unit or empty under the caller's assignment.
//
// The store does not know how atoms are assigned; it is handed a
// Valuation (the minimal read-only view it needs) by whatever owns the
// actual assignment, which in this module is pkg/hexsolver/assign. That
// keeps the two packages free of an import cycle while still letting
// nogood.Store answer "is this literal currently false" during watch
// maintenance.
package nogood

import (
	"sort"

	"github.com/mitchellh/hashstructure"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

// Valuation is the read-only view of an assignment the store needs to
// maintain the two-watched-literal invariant.
type Valuation interface {
	// IsFalse reports whether l is currently assigned false.
	IsFalse(l symtab.Literal) bool
	// IsTrue reports whether l is currently assigned true.
	IsTrue(l symtab.Literal) bool
}

// Handle is a stable reference to a nogood. Handles remain valid until
// the owning nogood is removed,
// which may happen only during restarts or engine teardown. Handle 0 is
// reserved and never issued.
type Handle uint32

// Status describes the state a nogood was left in immediately after
// Add or a watch-move attempt.
type Status uint8

const (
	// Watched means the nogood has two literals that are not true and
	// requires no immediate action.
	Watched Status = iota
	// Unit means exactly one literal is not yet true and the rest are
	// already true; that literal's complement must be asserted to keep
	// the nogood from being fully satisfied, and it belongs in the
	// propagation queue.
	Unit
	// Conflict means every literal is currently true, i.e. the nogood
	// itself is violated.
	Conflict
)

// Nogood is an unordered, duplicate-free set of literals. No model may
// satisfy all of them simultaneously.
type Nogood struct {
	ID Handle
	Lits []symtab.Literal

	watchA, watchB int // indices into Lits currently being watched, or -1
}

// UnitWork names a nogood that became unit, together with the single
// literal in it that is not yet true. Propagation must assign that
// literal's complement -- not the literal itself -- to keep the
// nogood's conjunction from becoming fully satisfied.
type UnitWork struct {
	Handle Handle
	Remaining symtab.Literal
}

// Store is the nogood store plus watch index.
type Store struct {
	nogoods []*Nogood // index 0 unused (Handle 0 reserved)
	byKey map[uint64][]Handle
	watch map[symtab.Literal][]Handle

	unitQueue []UnitWork
	conflict Handle // 0 if none pending

	onAdd map[symtab.AtomID][]func(Handle)
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nogoods: make([]*Nogood, 1, 64),
		byKey: make(map[uint64][]Handle),
		watch: make(map[symtab.Literal][]Handle),
		onAdd: make(map[symtab.AtomID][]func(Handle)),
	}
}

// canonicalKey hashes the sorted, duplicate-free literal set so that
// nogood identity is by canonical sorted literal set: two nogoods with
// the same literals in any order dedupe against each other.
// github.com/mitchellh/hashstructure gives a stable structural hash
// without hand-rolling one, the same tool used by pkg/hexsolver/mlp
// for input-interpretation identity.
func canonicalKey(lits []symtab.Literal) (sorted []symtab.Literal, key uint64) {
	seen := make(map[symtab.Literal]struct{}, len(lits))
	dedup := make([]symtab.Literal, 0, len(lits))
	for _, l := range lits {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		dedup = append(dedup, l)
	}
	sort.Slice(dedup, func(i, j int) bool { return dedup[i] < dedup[j] })
	h, err := hashstructure.Hash(dedup, nil)
	if err != nil {
		// hashstructure only errors on unsupported types; []Literal
		// (a slice of uint32) is always supported.
		panic("nogood: unexpected hashstructure failure: " + err.Error())
	}
	return dedup, h
}

// Add deduplicates lits against existing nogoods and either returns the
// existing handle unchanged (adding the same nogood twice yields the
// same handle and leaves the store unchanged) or installs a new
// nogood, watching two literals that are not true if two exist, else
// marking it Unit or Conflict.
func (s *Store) Add(lits []symtab.Literal, val Valuation) (Handle, Status) {
	sorted, key := canonicalKey(lits)
	for _, h := range s.byKey[key] {
		if sameLits(s.nogoods[h].Lits, sorted) {
			return h, s.reconcile(h, val)
		}
	}

	ng := &Nogood{Lits: sorted, watchA: -1, watchB: -1}
	h := Handle(len(s.nogoods))
	ng.ID = h
	s.nogoods = append(s.nogoods, ng)
	s.byKey[key] = append(s.byKey[key], h)

	status := s.installWatches(ng, val)
	for _, l := range ng.Lits {
		for _, cb := range s.onAdd[l.Atom()] {
			cb(h)
		}
	}
	return h, status
}

func sameLits(a, b []symtab.Literal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// installWatches picks two literals that are not currently true to
// watch -- a nogood is violated only once every literal is true, so
// watching non-true literals is what lets the store notice as soon as
// too few remain. If fewer than two such literals exist, the nogood is
// recorded as Conflict (none left, i.e. every literal is already true)
// or Unit (exactly one left; its complement must be asserted, unless
// that one literal is already false, in which case the nogood can
// never be violated and nothing is queued).
func (s *Store) installWatches(ng *Nogood, val Valuation) Status {
	var picks []int
	for i, l := range ng.Lits {
		if !val.IsTrue(l) {
			picks = append(picks, i)
			if len(picks) == 2 {
				break
			}
		}
	}
	switch len(picks) {
	case 0:
		s.conflict = ng.ID
		return Conflict
	case 1:
		lit := ng.Lits[picks[0]]
		ng.watchA = picks[0]
		s.watch[lit] = append(s.watch[lit], ng.ID)
		if val.IsFalse(lit) {
			return Watched
		}
		s.unitQueue = append(s.unitQueue, UnitWork{Handle: ng.ID, Remaining: lit})
		return Unit
	default:
		ng.watchA, ng.watchB = picks[0], picks[1]
		s.watch[ng.Lits[picks[0]]] = append(s.watch[ng.Lits[picks[0]]], ng.ID)
		s.watch[ng.Lits[picks[1]]] = append(s.watch[ng.Lits[picks[1]]], ng.ID)
		return Watched
	}
}

// reconcile recomputes an already-stored nogood's status against val
// and, if it is newly unit or conflicting, queues it for propagation --
// needed because Add's dedup path returns an existing handle without
// re-running installWatches, so a nogood added once under one
// assignment and looked up again under a later one (e.g. a learned
// nogood that happens to match one already in the store) must still be
// scheduled.
func (s *Store) reconcile(h Handle, val Valuation) Status {
	ng := s.nogoods[h]
	var notTrue []int
	for i, l := range ng.Lits {
		if !val.IsTrue(l) {
			notTrue = append(notTrue, i)
			if len(notTrue) > 1 {
				break
			}
		}
	}
	switch len(notTrue) {
	case 0:
		s.conflict = h
		return Conflict
	case 1:
		lit := ng.Lits[notTrue[0]]
		if val.IsFalse(lit) {
			return Watched
		}
		s.unitQueue = append(s.unitQueue, UnitWork{Handle: h, Remaining: lit})
		return Unit
	default:
		return Watched
	}
}

// Get returns the nogood for a handle.
func (s *Store) Get(h Handle) *Nogood {
	if int(h) >= len(s.nogoods) || h == 0 {
		return nil
	}
	return s.nogoods[h]
}

// Len returns the number of nogoods currently in the store.
func (s *Store) Len() int { return len(s.nogoods) - 1 }

// OnAdd registers a callback invoked whenever a newly added nogood
// mentions atom, regardless of sign. This is the narrow addition
// documented in SPEC_FULL.md section C.2, grounded on ClaspSolver.cpp's
// addNogoodSetWatch. No other package in this module registers a
// callback; in particular pkg/hexsolver/extatom's result cache is not
// invalidated through it.
func (s *Store) OnAdd(atom symtab.AtomID, cb func(Handle)) {
	s.onAdd[atom] = append(s.onAdd[atom], cb)
}

// OnAssign is called when l becomes true. For each nogood watching l
// (which has thus stopped being a safe "not true" watch), it attempts
// to move the watch to another literal that is not true; if none
// exists the nogood becomes a conflict (the other watch is also true),
// unit (the other watch is still unassigned; queued for propagation),
// or simply dead (the other watch is already false, so the nogood can
// never be violated again at this branch). Watch maintenance for a
// given call always terminates with every live nogood watching two
// currently not-true literals (or having fewer than two literals
// total).
func (s *Store) OnAssign(l symtab.Literal, val Valuation) {
	watchers := s.watch[l]
	if len(watchers) == 0 {
		return
	}
	kept := watchers[:0:0]
	for _, h := range watchers {
		ng := s.nogoods[h]
		idx := indexOfLit(ng, l)
		if idx < 0 {
			continue // stale entry, already moved away
		}
		other := ng.otherWatch(idx)
		moved := false
		for i, cand := range ng.Lits {
			if i == ng.watchA || i == ng.watchB {
				continue
			}
			if !val.IsTrue(cand) {
				ng.setWatch(idx, i)
				s.watch[cand] = append(s.watch[cand], h)
				moved = true
				break
			}
		}
		if moved {
			continue // this watcher list entry for `l` is dropped
		}
		kept = append(kept, h)
		if other < 0 {
			// Only one literal was ever watched (a single-literal
			// nogood, or one that was already down to one candidate at
			// install time): l becoming true violates it outright.
			s.conflict = h
			continue
		}
		otherLit := ng.Lits[other]
		switch {
		case val.IsTrue(otherLit):
			s.conflict = h
		case val.IsFalse(otherLit):
			// otherLit is permanently false: this nogood can no longer
			// be violated, so it needs neither a watch move nor queuing.
		default:
			s.unitQueue = append(s.unitQueue, UnitWork{Handle: h, Remaining: otherLit})
		}
	}
	s.watch[l] = kept
}

// OnUnassign is a no-op: watches survive back-jumping.
func (s *Store) OnUnassign(symtab.Literal) {}

// PopUnit removes and returns the next queued unit nogood, FIFO, and
// whether one was available.
func (s *Store) PopUnit() (UnitWork, bool) {
	if len(s.unitQueue) == 0 {
		return UnitWork{}, false
	}
	w := s.unitQueue[0]
	s.unitQueue = s.unitQueue[1:]
	return w, true
}

// DrainUnits discards the pending unit queue, used when unwinding to a
// decision level where those nogoods are no longer unit.
func (s *Store) DrainUnits() { s.unitQueue = s.unitQueue[:0] }

// TakeConflict returns and clears the pending conflict handle, if any.
func (s *Store) TakeConflict() (Handle, bool) {
	if s.conflict == 0 {
		return 0, false
	}
	h := s.conflict
	s.conflict = 0
	return h, true
}

// Remove deletes a nogood, provided it is not currently watched by any
// unassigned literal's reason chain -- callers (restart / teardown) must
// have already verified it is not the reason for an assigned literal, as
// Remove has no way to consult the assignment itself.
func (s *Store) Remove(h Handle) {
	ng := s.nogoods[h]
	if ng == nil {
		return
	}
	for _, idx := range []int{ng.watchA, ng.watchB} {
		if idx < 0 {
			continue
		}
		l := ng.Lits[idx]
		s.watch[l] = removeHandle(s.watch[l], h)
	}
	s.nogoods[h] = nil
}

func removeHandle(hs []Handle, target Handle) []Handle {
	out := hs[:0]
	for _, h := range hs {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}

func indexOfLit(ng *Nogood, l symtab.Literal) int {
	if ng.watchA >= 0 && ng.Lits[ng.watchA] == l {
		return ng.watchA
	}
	if ng.watchB >= 0 && ng.Lits[ng.watchB] == l {
		return ng.watchB
	}
	return -1
}

func (ng *Nogood) otherWatch(idx int) int {
	if idx == ng.watchA {
		return ng.watchB
	}
	return ng.watchA
}

func (ng *Nogood) setWatch(oldIdx, newIdx int) {
	if oldIdx == ng.watchA {
		ng.watchA = newIdx
	} else {
		ng.watchB = newIdx
	}
}
