// Package assign holds the solver's assignment state: truth
// value, decision level, reason and insertion index per atom, the
// per-level undo stacks, and the VSIDS-like activity/phase-saving state
// decisions are made from.
package assign

import (
	"github.com/hexsolve/hexsolve/pkg/hexsolver/nogood"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

// Value is the truth value of an atom.
type Value int8

const (
	Unset Value = 0
	True Value = 1
	False Value = -1
)

// Reason names what forced an atom's assignment: either a decision, or
// the nogood whose unit propagation produced it.
type Reason struct {
	IsDecision bool
	Nogood nogood.Handle
}

// DecisionReason is the sentinel Reason recorded for atoms assigned by
// Decide rather than propagation.
var DecisionReason = Reason{IsDecision: true}

type record struct {
	value Value
	level int
	reason Reason
	index uint64 // insertion order, strictly increasing
}

// Assignment is the partial function atom id -> {true, false} plus,
// for each assigned atom, its decision level, reason, and insertion
// index.
type Assignment struct {
	rec map[symtab.AtomID]*record
	levels [][]symtab.AtomID // per-level list of atoms, in assignment order
	nextIndex uint64
	activity map[symtab.AtomID]float64
	phase map[symtab.AtomID]bool // last-seen sign, default false
	conflictN int
	decayEvery int // N in "decay activity multiplicatively after every N conflicts"
}

// New returns an empty assignment at decision level 0.
func New() *Assignment {
	return &Assignment{
		rec: make(map[symtab.AtomID]*record),
		levels: [][]symtab.AtomID{nil}, // level 0
		activity: make(map[symtab.AtomID]float64),
		phase: make(map[symtab.AtomID]bool),
		decayEvery: 256,
	}
}

// Level returns the current decision level (0 at the root).
func (a *Assignment) Level() int { return len(a.levels) - 1 }

// PushLevel begins a new decision level (called by Decide).
func (a *Assignment) PushLevel() {
	a.levels = append(a.levels, nil)
}

// Assign records ℓ as holding: the atom underlying ℓ is set to True if ℓ
// is positive, False if ℓ is negative, at the current decision level,
// with the given reason.
func (a *Assignment) Assign(l symtab.Literal, r Reason) {
	id := l.Atom()
	v := True
	if l.Negative() {
		v = False
	}
	level := a.Level()
	a.rec[id] = &record{value: v, level: level, reason: r, index: a.nextIndex}
	a.nextIndex++
	a.levels[level] = append(a.levels[level], id)
	a.phase[id] = l.Negative()
}

// Value returns the current value of an atom.
func (a *Assignment) Value(id symtab.AtomID) Value {
	if r, ok := a.rec[id]; ok {
		return r.value
	}
	return Unset
}

// IsFalse implements nogood.Valuation: l is false when the underlying
// atom is assigned to the opposite of what l requires.
func (a *Assignment) IsFalse(l symtab.Literal) bool {
	v := a.Value(l.Atom())
	if v == Unset {
		return false
	}
	if l.Negative() {
		return v == True
	}
	return v == False
}

// IsTrue implements nogood.Valuation: l is true when the underlying
// atom is assigned to what l requires.
func (a *Assignment) IsTrue(l symtab.Literal) bool {
	v := a.Value(l.Atom())
	if v == Unset {
		return false
	}
	if l.Negative() {
		return v == False
	}
	return v == True
}

// Assigned reports whether an atom currently has a value.
func (a *Assignment) Assigned(id symtab.AtomID) bool { return a.Value(id) != Unset }

// LevelOf returns the decision level an atom was assigned at, or -1 if
// unassigned.
func (a *Assignment) LevelOf(id symtab.AtomID) int {
	if r, ok := a.rec[id]; ok {
		return r.level
	}
	return -1
}

// ReasonOf returns the reason an atom was assigned, and whether it is
// assigned at all.
func (a *Assignment) ReasonOf(id symtab.AtomID) (Reason, bool) {
	r, ok := a.rec[id]
	if !ok {
		return Reason{}, false
	}
	return r.reason, true
}

// IndexOf returns the insertion index of an atom's assignment, used for
// tie-breaking during conflict analysis.
func (a *Assignment) IndexOf(id symtab.AtomID) uint64 {
	if r, ok := a.rec[id]; ok {
		return r.index
	}
	return 0
}

// AtomsAtLevel returns the atoms assigned at a given level, in
// assignment order.
func (a *Assignment) AtomsAtLevel(level int) []symtab.AtomID {
	if level < 0 || level >= len(a.levels) {
		return nil
	}
	return a.levels[level]
}

// UndoToLevel un-assigns every atom assigned above level and truncates
// the level stack. Phase (last-seen sign) and activity survive the
// undo, so phase saving and VSIDS decay carry across backtracks.
func (a *Assignment) UndoToLevel(level int) {
	for l := a.Level(); l > level; l-- {
		for _, id := range a.levels[l] {
			delete(a.rec, id)
		}
	}
	a.levels = a.levels[:level+1]
}

// Bump increments an atom's VSIDS-like activity counter.
func (a *Assignment) Bump(id symtab.AtomID, amount float64) {
	a.activity[id] += amount
}

// Activity returns an atom's current activity score.
func (a *Assignment) Activity(id symtab.AtomID) float64 { return a.activity[id] }

// NotifyConflict increments the conflict counter and, every decayEvery
// conflicts, multiplicatively decays every atom's activity.
func (a *Assignment) NotifyConflict() {
	a.conflictN++
	if a.conflictN%a.decayEvery == 0 {
		for id := range a.activity {
			a.activity[id] *= 0.5
		}
	}
}

// SetDecayEvery overrides N, the conflict-count decay period (default 256).
func (a *Assignment) SetDecayEvery(n int) {
	if n > 0 {
		a.decayEvery = n
	}
}

// Phase returns the last-seen sign for an atom (phase saving), default
// false (i.e. the atom defaults to being decided positive).
func (a *Assignment) Phase(id symtab.AtomID) bool { return a.phase[id] }
