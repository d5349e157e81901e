// Package cdnl implements the conflict-driven nogood learning engine:
// decide / propagate / analyze / backjump, a VSIDS-like activity
// heuristic with phase saving, and Luby-sequence restarts, instrumented
// via an Observer in the same spirit as a SAT-style constraint solver's
// trace hook.
package cdnl

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/assign"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/hexerr"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/nogood"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

// UnfoundedChecker is the unfounded-set boundary:
// given the current total assignment, it either returns ok=true, or a
// loop nogood to add and propagate from.
type UnfoundedChecker interface {
	Check(ctx context.Context, asg *assign.Assignment) (loopNogood []symtab.Literal, ok bool)
}

// ExternalEvaluator is the external-atom boundary:
// given the current (possibly partial) assignment, it returns any
// nogoods the plugin layer wants added -- auxiliary input rules and
// replacement-atom support nogoods alike -- before the engine keeps
// propagating.
type ExternalEvaluator interface {
	Evaluate(ctx context.Context, asg *assign.Assignment) ([][]symtab.Literal, error)
}

// Observer is a caller-supplied hook notified of decisions,
// propagations, conflicts and restarts, used for tests and
// diagnostics. Every method is optional; NopObserver implements all of
// them as no-ops.
type Observer interface {
	Decided(l symtab.Literal, level int)
	Propagated(l symtab.Literal, via nogood.Handle)
	Conflicted(level int)
	Learned(lits []symtab.Literal)
	Restarted(count int)
}

// NopObserver is the zero-cost default Observer.
type NopObserver struct{}

func (NopObserver) Decided(symtab.Literal, int) {}
func (NopObserver) Propagated(symtab.Literal, nogood.Handle) {}
func (NopObserver) Conflicted(int) {}
func (NopObserver) Learned([]symtab.Literal) {}
func (NopObserver) Restarted(int) {}

// Option configures an Engine, matching the functional-options shape
// used throughout this module.
type Option func(*Engine)

// WithLogger injects a structured logger; never read from a
// package-level global.
func WithLogger(l logrus.FieldLogger) Option { return func(e *Engine) { e.log = l } }

// WithObserver installs a diagnostics hook.
func WithObserver(o Observer) Option { return func(e *Engine) { e.obs = o } }

// WithUnfoundedChecker installs the unfounded-set boundary. If omitted,
// the engine performs no unfounded-set check (acceptable only for
// programs known to be tight; choice of checker is left to the
// caller).
func WithUnfoundedChecker(c UnfoundedChecker) Option { return func(e *Engine) { e.ufs = c } }

// WithExternalEvaluator installs the external-atom boundary.
func WithExternalEvaluator(ev ExternalEvaluator) Option { return func(e *Engine) { e.ext = ev } }

// WithRestartBase sets the Luby-sequence base unit (default 100
// conflicts).
func WithRestartBase(n int) Option { return func(e *Engine) { e.restartBase = n } }

// WithMaxModels bounds the number of models enumerated by Solve before
// it returns (0 means unbounded).
func WithMaxModels(n int) Option { return func(e *Engine) { e.maxModels = n } }

// Engine is a CDNL search over a nogood.Store.
type Engine struct {
	log logrus.FieldLogger
	obs Observer
	ufs UnfoundedChecker
	ext ExternalEvaluator

	store *nogood.Store
	asg *assign.Assignment

	atoms []symtab.AtomID // every atom the engine may decide on

	restartBase int
	restartCount int
	conflictsAt int // conflicts since the last restart

	maxModels int
}

// New builds an Engine over the given atoms (the decidable vocabulary)
// and store.
func New(atoms []symtab.AtomID, store *nogood.Store, opts ...Option) *Engine {
	e := &Engine{
		log: logrus.StandardLogger(),
		obs: NopObserver{},
		store: store,
		asg: assign.New(),
		atoms: atoms,
		restartBase: 100,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Assignment exposes the engine's current assignment, e.g. for a
// caller building a model after Solve reports Satisfiable.
func (e *Engine) Assignment() *assign.Assignment { return e.asg }

// Outcome is the terminal result of a single Solve call.
type Outcome int

const (
	Satisfiable Outcome = iota
	Unsatisfiable
	Exhausted // maxModels reached
)

// Solve runs decide/propagate/analyze/backjump to either exhaustion
// (Unsatisfiable), a model (Satisfiable, with onModel invoked and
// search resumed by adding the model's true atoms as a new nogood), or
// until maxModels models have been reported (Exhausted).
func (e *Engine) Solve(ctx context.Context, onModel func(model []symtab.AtomID)) (Outcome, error) {
	models := 0
	for {
		res, err := e.search(ctx)
		if err != nil {
			return Unsatisfiable, err
		}
		if !res {
			return Unsatisfiable, nil
		}
		model := e.currentModel()
		if onModel != nil {
			onModel(model)
		}
		models++
		if e.maxModels > 0 && models >= e.maxModels {
			return Exhausted, nil
		}
		if !e.blockModel(model) {
			return Unsatisfiable, nil
		}
	}
}

// blockModel adds a nogood made of the positive literals of the
// model's true atoms (false atoms are not included, so every model
// whose true atoms include these is ruled out too) and reports whether
// search can continue. The model just found
// satisfies every literal of that nogood by construction, so adding it
// always yields an immediate conflict; blockModel routes that conflict
// through the same analyze/backjump machinery a propagation-time
// conflict uses, rather than unwinding to level 0 unconditionally --
// that unconditional unwind previously discarded the very constraint
// just added (via DrainUnits) and, combined with phase saving defaulting
// to the same branch, re-derived the identical model forever.
func (e *Engine) blockModel(model []symtab.AtomID) bool {
	lits := make([]symtab.Literal, 0, len(model))
	for _, id := range model {
		lits = append(lits, symtab.Pos(id))
	}
	_, status := e.store.Add(lits, e.asg)
	if status != nogood.Conflict {
		return true
	}
	e.obs.Conflicted(e.asg.Level())
	return e.resolveConflict()
}

func (e *Engine) undoAll() {
	e.asg.UndoToLevel(0)
	e.store.DrainUnits()
}

// currentModel returns every atom currently assigned true, projected
// through nothing -- mask projection is left to the caller.
func (e *Engine) currentModel() []symtab.AtomID {
	var model []symtab.AtomID
	for _, id := range e.atoms {
		if e.asg.Value(id) == assign.True {
			model = append(model, id)
		}
	}
	return model
}

// search drives decide/propagate/analyze/backjump until either every
// atom is assigned with no pending conflict (true), or the root level
// itself conflicts (false).
func (e *Engine) search(ctx context.Context) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		conflict, err := e.propagate(ctx)
		if err != nil {
			return false, err
		}
		if conflict {
			if !e.resolveConflict() {
				return false, nil // root-level conflict: unsatisfiable
			}
			continue
		}
		if e.ufs != nil {
			loop, ok := e.ufs.Check(ctx, e.asg)
			if !ok {
				e.store.Add(loop, e.asg)
				continue
			}
		}
		id, lit, hasMore := e.nextUnassigned()
		if !hasMore {
			_ = id
			return true, nil
		}
		e.decide(lit)
	}
}

// propagate drains the unit queue, the external-atom boundary, and
// two-watched-literal consequences until fixpoint or a conflict is
// reported.
func (e *Engine) propagate(ctx context.Context) (conflict bool, err error) {
	for {
		if h, ok := e.store.TakeConflict(); ok {
			e.obs.Conflicted(e.asg.Level())
			_ = h
			return true, nil
		}
		w, ok := e.store.PopUnit()
		if !ok {
			break
		}
		if e.asg.Assigned(w.Remaining.Atom()) {
			continue
		}
		e.propagateLiteral(w.Remaining.Not(), w.Handle)
		if h, ok := e.store.TakeConflict(); ok {
			_ = h
			e.obs.Conflicted(e.asg.Level())
			return true, nil
		}
	}
	if e.ext != nil {
		added, err := e.ext.Evaluate(ctx, e.asg)
		if err != nil {
			return false, errors.Wrap(err, "external atom evaluation")
		}
		if len(added) > 0 {
			for _, lits := range added {
				e.store.Add(lits, e.asg)
			}
			return e.propagate(ctx)
		}
	}
	return false, nil
}

func (e *Engine) propagateLiteral(l symtab.Literal, via nogood.Handle) {
	e.asg.Assign(l, assign.Reason{Nogood: via})
	e.obs.Propagated(l, via)
	e.store.OnAssign(l, e.asg)
}

func (e *Engine) decide(l symtab.Literal) {
	e.asg.PushLevel()
	e.asg.Assign(l, assign.DecisionReason)
	e.obs.Decided(l, e.asg.Level())
	e.store.OnAssign(l, e.asg)
}

// nextUnassigned picks the next atom to decide by highest activity,
// breaking ties by table order, and applies phase saving for the sign.
func (e *Engine) nextUnassigned() (symtab.AtomID, symtab.Literal, bool) {
	var best symtab.AtomID
	found := false
	bestActivity := -1.0
	for _, id := range e.atoms {
		if e.asg.Assigned(id) {
			continue
		}
		a := e.asg.Activity(id)
		if !found || a > bestActivity {
			best, bestActivity, found = id, a, true
		}
	}
	if !found {
		return 0, 0, false
	}
	if e.asg.Phase(best) {
		return best, symtab.Neg(best), true
	}
	return best, symtab.Pos(best), true
}

// analyze performs first-UIP conflict analysis: resolve the conflicting
// nogood against reason nogoods of literals at the current decision
// level until exactly one literal from that level remains, then return
// the back-jump level (the second-highest level among the learned
// nogood's literals, or 0 if only one level is represented) and the
// learned nogood. ok is false when there is no pending conflict or the
// conflict is at level 0, meaning the root itself conflicts.
func (e *Engine) analyze() (level int, learned []symtab.Literal, ok bool) {
	h, has := e.store.TakeConflict()
	if !has {
		return 0, nil, false
	}
	ng := e.store.Get(h)
	if ng == nil {
		return 0, nil, false
	}
	working := append([]symtab.Literal(nil), ng.Lits...)
	current := e.asg.Level()
	for {
		atCurrent := 0
		var lastAssigned symtab.Literal
		var lastIdx uint64
		for _, l := range working {
			if e.asg.LevelOf(l.Atom()) == current {
				atCurrent++
				if idx := e.asg.IndexOf(l.Atom()); idx >= lastIdx {
					lastIdx = idx
					lastAssigned = l
				}
			}
		}
		for _, l := range working {
			e.asg.Bump(l.Atom(), 1.0)
		}
		if atCurrent <= 1 {
			break
		}
		reason, isAssigned := e.asg.ReasonOf(lastAssigned.Atom())
		if !isAssigned || reason.IsDecision {
			break // nothing to resolve against; stop at what we have
		}
		rng := e.store.Get(reason.Nogood)
		if rng == nil {
			break
		}
		working = resolve(working, rng.Lits, lastAssigned.Atom())
	}
	if current == 0 {
		return 0, nil, false
	}
	// Back-jump level is the second-highest decision level among the
	// learned nogood's literals, or 0 if only one level is represented.
	second := 0
	for _, l := range working {
		lv := e.asg.LevelOf(l.Atom())
		if lv != current && lv > second {
			second = lv
		}
	}
	return second, dedupLits(working), true
}

// resolve performs the nogood-analogue of clause resolution: it unions
// a and b, dropping the two (complementary) literals over pivot.
func resolve(a, b []symtab.Literal, pivot symtab.AtomID) []symtab.Literal {
	out := make([]symtab.Literal, 0, len(a)+len(b))
	for _, l := range a {
		if l.Atom() != pivot {
			out = append(out, l)
		}
	}
	for _, l := range b {
		if l.Atom() != pivot {
			out = append(out, l)
		}
	}
	return out
}

func dedupLits(lits []symtab.Literal) []symtab.Literal {
	seen := make(map[symtab.Literal]struct{}, len(lits))
	out := make([]symtab.Literal, 0, len(lits))
	for _, l := range lits {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// resolveConflict runs 1-UIP analysis against the pending conflict,
// learns a nogood, backjumps to the level analyze names, and installs
// the learned nogood. Installing it against the post-backjump
// assignment is itself what determines the unique implication point to
// assert: the learned nogood is constructed so that exactly one of its
// literals is not yet true at that level, and Add's installWatches
// discovers that literal the same way it would for any other nogood --
// no separate pre-backjump bookkeeping is needed. It reports false when
// the conflict is at the root level, meaning no assignment can repair
// it.
func (e *Engine) resolveConflict() bool {
	level, learned, ok := e.analyze()
	if !ok {
		return false
	}
	e.obs.Learned(learned)
	e.asg.NotifyConflict()
	e.conflictsAt++
	e.backjumpTo(level)
	h, status := e.store.Add(learned, e.asg)
	if status == nogood.Unit {
		w, _ := e.store.PopUnit()
		e.propagateLiteral(w.Remaining.Not(), h)
	}
	if e.shouldRestart() {
		e.restart()
	}
	return true
}

func (e *Engine) backjumpTo(level int) {
	e.asg.UndoToLevel(level)
	e.store.DrainUnits()
}

// shouldRestart reports whether the Luby sequence says a restart is due.
func (e *Engine) shouldRestart() bool {
	threshold := e.restartBase * luby(e.restartCount+1)
	return e.conflictsAt >= threshold
}

func (e *Engine) restart() {
	e.restartCount++
	e.conflictsAt = 0
	e.obs.Restarted(e.restartCount)
	e.undoAll()
}

// luby returns the i-th term (1-indexed) of the Luby sequence
// 1,1,2,1,1,2,4,1,1,2,1,1,2,4,8,... used to scale restart intervals.
func luby(i int) int {
	k := 1
	for k < i {
		k = 2*k + 1
	}
	for i != k {
		k = (k - 1) / 2
		if k < i {
			i -= k
		} else {
			return luby(i)
		}
	}
	return (k + 1) / 2
}

// ErrNoModel is returned by callers that wrap Solve when Unsatisfiable
// is reached and they need a concrete error value, mirroring solver.NotSatisfiable's role as
// both an error and a report.
var ErrNoModel = errors.New("program has no answer set")
