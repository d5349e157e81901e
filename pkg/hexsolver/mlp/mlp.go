// Package mlp implements the modular logic program orchestrator: the
// comp procedure over an instance table deduplicated by module name and
// actual inputs, a path stack for loop detection, and a per-instance
// list of models (there is no separate global model set or MFlag
// bitmap). Nested module calls are evaluated by ordinary Go recursion
// (evalInstance -> rewrite -> ReplacementFor -> evalInstance); there is
// no explicit work-item stack, so the Go call depth grows with the
// depth of the module-call chain.
package mlp

import (
	"context"

	"github.com/mitchellh/hashstructure"
	"github.com/sirupsen/logrus"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/cdnl"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/ground"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/hexerr"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/nogood"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/rewrite"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

// Module is one named, parameterized subprogram: its formal input
// predicates and its (possibly module-atom-laden) ground program
// template.
type Module struct {
	Name string
	FormalInputs []string
	Program *ground.Program
	// MainTopLevel marks the distinguished top-level module enumerated
	// directly by Solve.
	MainTopLevel bool
}

// instanceKey identifies a module instance by name and actual input
// tuple, hashed for the dedup table").
type instanceKey struct {
	Name string
	Inputs []symtab.AtomID
}

// instance is one row of the instance table: the module it
// instantiates, its actual inputs, the rewrite namespace it owns, and
// the models found for it so far. MFlag[i] (spec §4.6) is realized here
// as "does inst.done hold and is this model in inst.models" rather than
// a separate bitmap -- see DESIGN.md's Open Question decision.
type instance struct {
	id rewrite.InstanceID
	mod *Module
	inputs []symtab.AtomID
	models [][]symtab.AtomID // every model found for this instance so far
	done bool // this instance's models are finalized
}

// Orchestrator runs the comp procedure.
type Orchestrator struct {
	log logrus.FieldLogger
	sym *symtab.Table
	rw *rewrite.Rewriter
	modules map[string]*Module
	cycleUnion bool

	byKey map[uint64]rewrite.InstanceID
	byID []*instance // index 0 unused, ids start at 1
	path []rewrite.InstanceID
	newEngine func(atoms []symtab.AtomID, store *nogood.Store, instanceID rewrite.InstanceID) *cdnl.Engine

	// ctx is the in-flight Solve call's context, read by ReplacementFor
	// when it recursively solves a referenced sub-instance. comp is
	// single-threaded and cooperative (spec §5: one next_model() runs to
	// completion before returning), so a single in-progress context
	// carried on the Orchestrator for the duration of one Solve call is
	// safe; it is never read outside that call.
	ctx context.Context

	// pendingRepl and pendingFacts track the replacement atoms minted
	// while rewriting the instance currently being evaluated: every
	// replacement atom is hidden from that instance's own model
	// (pendingRepl), and the subset of them already true in the
	// referenced sub-instance's models is injected as an EDB fact
	// (pendingFacts). evalInstance saves and restores both around each
	// nested rw.Program call so a sub-instance's own module-atom
	// occurrences don't pollute the caller's bookkeeping.
	pendingRepl []symtab.AtomID
	pendingFacts []symtab.AtomID
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger injects a structured logger.
func WithLogger(l logrus.FieldLogger) Option { return func(o *Orchestrator) { o.log = l } }

// WithEngineFactory overrides how a CDNL engine is built per instance,
// letting a caller wire an UnfoundedChecker or ExternalEvaluator scoped
// to that instance's program.
func WithEngineFactory(f func(atoms []symtab.AtomID, store *nogood.Store, instanceID rewrite.InstanceID) *cdnl.Engine) Option {
	return func(o *Orchestrator) { o.newEngine = f }
}

// WithCycleUnion controls module-call-cycle handling. Default false:
// a detected cycle fails fast with StratificationError, the
// conservative option spec §9 recommends given the original's
// commented-out ic-stratified check versus its uncommented union pass.
// When true, revisiting an in-progress instance instead treats that
// instance as contributing no facts on this path (its replacement atoms
// all resolve false) and lets the call that would have cycled return
// immediately -- an approximation of the original's union behavior, not
// the full path-splicing merge spec §4.6 step 1 describes.
func WithCycleUnion(allow bool) Option { return func(o *Orchestrator) { o.cycleUnion = allow } }

// New builds an Orchestrator over a shared symbol table and the set of
// named modules a program defines.
func New(sym *symtab.Table, modules map[string]*Module, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log: logrus.StandardLogger(),
		sym: sym,
		rw: rewrite.New(sym),
		modules: modules,
		byKey: make(map[uint64]rewrite.InstanceID),
		byID: make([]*instance, 1, 16),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.newEngine == nil {
		o.newEngine = func(atoms []symtab.AtomID, store *nogood.Store, _ rewrite.InstanceID) *cdnl.Engine {
			return cdnl.New(atoms, store)
		}
	}
	return o
}

// instanceFor returns the instance table row for (name, inputs),
// allocating one on first reference. It does not touch the path stack;
// evalInstance pushes an instance onto the path while evaluating it.
func (o *Orchestrator) instanceFor(name string, inputs []symtab.AtomID) (*instance, error) {
	key, err := hashstructure.Hash(instanceKey{Name: name, Inputs: inputs}, nil)
	if err != nil {
		return nil, hexerr.Wrap(err, "hashing module instance key")
	}
	if id, ok := o.byKey[key]; ok {
		return o.byID[id], nil
	}
	mod, ok := o.modules[name]
	if !ok {
		return nil, &hexerr.InvariantError{Detail: "reference to undefined module " + name}
	}
	id := rewrite.InstanceID(len(o.byID))
	inst := &instance{id: id, mod: mod, inputs: inputs}
	o.byID = append(o.byID, inst)
	o.byKey[key] = id
	return inst, nil
}

// ReplacementFor implements rewrite.Resolver: a module-atom occurrence
// @name[actualInputs]::outputPattern resolves to the referenced
// instance's own rewritten atom for outputPattern (not a fresh auxiliary
// one), recursively solving that instance first so its models already
// exist to check outputPattern's truth against. Using
// rewrite.Prefix(inst.id)+outputPattern as the replacement atom's text
// makes symtab.Intern's text-based dedup alias it to literally the atom
// the sub-instance's own rewrite produced for that output, so no
// separate fact-bridging table is needed: the replacement atom IS the
// sub-instance's atom.
func (o *Orchestrator) ReplacementFor(name string, actualInputs []symtab.AtomID, outputPattern string) (symtab.AtomID, error) {
	inst, err := o.instanceFor(name, actualInputs)
	if err != nil {
		return 0, err
	}
	if o.onPath(inst.id) {
		if !o.cycleUnion {
			return 0, &hexerr.StratificationError{ModuleAtom: name}
		}
		text := rewrite.Prefix(inst.id) + outputPattern
		repl := o.sym.Intern(text, "aux_r["+name+"]", 0, symtab.FlagAuxiliary)
		// Recorded as pending but never as a fact, so evalInstance hides
		// it and forces it false on this path.
		o.pendingRepl = append(o.pendingRepl, repl)
		return repl, nil
	}
	if err := o.resolve(inst); err != nil {
		return 0, err
	}
	text := rewrite.Prefix(inst.id) + outputPattern
	repl := o.sym.Intern(text, "aux_r["+name+"]", 0, symtab.FlagAuxiliary)
	o.pendingRepl = append(o.pendingRepl, repl)
	if trueInAnyModel(inst, repl) {
		o.pendingFacts = append(o.pendingFacts, repl)
	}
	return repl, nil
}

// resolve solves inst (if it hasn't been already) without forwarding
// its models to any top-level onModel callback; only the main instance
// Solve was invoked for reports models to the caller.
func (o *Orchestrator) resolve(inst *instance) error {
	if inst.done {
		return nil
	}
	return o.evalInstance(o.ctx, inst, nil)
}

// trueInAnyModel reports whether atom appears (positively) in any of
// inst's already-computed models. This unions across inst's candidate
// models rather than cross-producting them against the caller's own
// value-call set as spec §4.6 step 2 describes; see DESIGN.md's Open
// Question decision for why that narrower semantics was chosen here.
func trueInAnyModel(inst *instance, atom symtab.AtomID) bool {
	for _, model := range inst.models {
		for _, a := range model {
			if a == atom {
				return true
			}
		}
	}
	return false
}

// onPath reports whether an instance id already appears on the current
// call path, i.e. a module-call cycle.
func (o *Orchestrator) onPath(id rewrite.InstanceID) bool {
	for _, p := range o.path {
		if p == id {
			return true
		}
	}
	return false
}

// Solve runs comp starting from the distinguished main top-level
// module, calling onModel for every model of the main instance,
// projected through its mask (sub-instance replacement atoms are
// hidden, so only the main instance's own atoms are reported).
func (o *Orchestrator) Solve(ctx context.Context, mainInputs []symtab.AtomID, onModel func(model []symtab.AtomID)) error {
	var main *Module
	for _, m := range o.modules {
		if m.MainTopLevel {
			main = m
			break
		}
	}
	if main == nil {
		return &hexerr.InvariantError{Detail: "no main top-level module designated"}
	}
	root, err := o.instanceFor(main.Name, mainInputs)
	if err != nil {
		return err
	}
	if err := o.smallestIll(); err != nil {
		return err
	}
	o.ctx = ctx
	return o.evalInstance(ctx, root, onModel)
}

// evalInstance computes (or reuses) the models of one instance, pushing
// it onto the path stack while its own module-atom dependencies are
// being resolved, implemented here as ordinary recursive calls (through
// ReplacementFor, invoked from rw.Program below) guarded by
// onPath/loop detection rather than a hand-rolled work-item stack,
// since the call depth is bounded by the number of distinct module
// instances once cycles are rejected. onModel is nil for a nested call
// made on behalf of another instance's ReplacementFor: only the
// instance Solve was invoked for forwards models to the caller.
func (o *Orchestrator) evalInstance(ctx context.Context, inst *instance, onModel func(model []symtab.AtomID)) error {
	if inst.done {
		if onModel != nil {
			for _, m := range inst.models {
				onModel(m)
			}
		}
		return nil
	}
	o.path = append(o.path, inst.id)
	defer func() { o.path = o.path[:len(o.path)-1] }()

	savedRepl, savedFacts := o.pendingRepl, o.pendingFacts
	o.pendingRepl, o.pendingFacts = nil, nil
	rewritten, err := o.rw.Program(inst.id, inst.mod.Program, o)
	repl, facts := o.pendingRepl, o.pendingFacts
	o.pendingRepl, o.pendingFacts = savedRepl, savedFacts
	if err != nil {
		return err
	}

	for _, f := range facts {
		rewritten.AddFact(f)
	}
	for _, in := range inst.inputs {
		rewritten.AddFact(in)
	}
	for _, r := range repl {
		rewritten.Mask.Hide(r)
	}

	var atoms []symtab.AtomID
	for id := range rewritten.EDB {
		atoms = append(atoms, id)
	}
	for _, r := range rewritten.IDB {
		atoms = append(atoms, r.Head...)
		for _, l := range r.Body {
			atoms = append(atoms, l.Atom())
		}
	}
	atoms = dedupAtoms(atoms)

	store := nogood.New()
	installRules(store, rewritten)
	for _, r := range repl {
		if !containsAtom(facts, r) {
			store.Add([]symtab.Literal{symtab.Pos(r)}, trivialValuation{})
		}
	}

	engine := o.newEngine(atoms, store, inst.id)
	_, err = engine.Solve(ctx, func(model []symtab.AtomID) {
		projected := rewritten.Mask.Project(model)
		inst.models = append(inst.models, projected)
		if onModel != nil {
			onModel(projected)
		}
	})
	if err != nil {
		return err
	}
	inst.done = true
	return nil
}

// installRules translates a rewritten ground.Program's rules into
// completion-style support nogoods: for a non-disjunctive rule
// h:- b1,...,bn, not c1,...,not cm, the nogood {not h, b1,...,bn,
// not c1,...,not cm, in-complement form} enforces h whenever the body
// holds; for a constraint (empty head) the body literals themselves
// form a forbidding nogood directly. Disjunctive heads are left to the
// unfounded-set boundary to police; here each
// disjunct only gets the constraint-style "body holds but no disjunct
// does" nogood.
func installRules(store *nogood.Store, p *ground.Program) {
	triv := trivialValuation{}
	for id := range p.EDB {
		store.Add([]symtab.Literal{symtab.Neg(id)}, triv)
	}
	for _, r := range p.IDB {
		if r.IsConstraint() {
			store.Add(r.Body, triv)
			continue
		}
		if !r.IsDisjunctive() {
			lits := append([]symtab.Literal{symtab.Neg(r.Head[0])}, r.Body...)
			store.Add(lits, triv)
			continue
		}
		lits := make([]symtab.Literal, 0, len(r.Head)+len(r.Body))
		for _, h := range r.Head {
			lits = append(lits, symtab.Neg(h))
		}
		lits = append(lits, r.Body...)
		store.Add(lits, triv)
	}
}

// trivialValuation treats every literal as unassigned, used only while
// installing a program's initial nogoods (before any engine owns an
// Assignment to ask).
type trivialValuation struct{}

func (trivialValuation) IsFalse(symtab.Literal) bool { return false }
func (trivialValuation) IsTrue(symtab.Literal) bool { return false }

func containsAtom(atoms []symtab.AtomID, id symtab.AtomID) bool {
	for _, a := range atoms {
		if a == id {
			return true
		}
	}
	return false
}

func dedupAtoms(atoms []symtab.AtomID) []symtab.AtomID {
	seen := make(map[symtab.AtomID]struct{}, len(atoms))
	out := make([]symtab.AtomID, 0, len(atoms))
	for _, a := range atoms {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// smallestIll performs the i-stratification scan: repeatedly pick a
// module whose module-atom dependencies are
// all already resolved (the "smallest independent lower layer"); if a
// full pass finds no such candidate while unresolved dependencies
// remain, the program is not i-stratified. The fixpoint shape mirrors
// the one github.com/google/mangle's analysis.AnalyzeOneUnit uses for
// its own stratification check (SPEC_FULL.md section B documents why
// mangle itself isn't wired here).
func (o *Orchestrator) smallestIll() error {
	resolved := make(map[string]bool)
	remaining := make(map[string]*Module)
	for name, m := range o.modules {
		remaining[name] = m
	}
	for len(remaining) > 0 {
		progressed := false
		for name, m := range remaining {
			if dependsOnlyOnResolved(m, resolved) {
				resolved[name] = true
				delete(remaining, name)
				progressed = true
			}
		}
		if !progressed {
			for name := range remaining {
				return &hexerr.StratificationError{ModuleAtom: name}
			}
		}
	}
	return nil
}

func dependsOnlyOnResolved(m *Module, resolved map[string]bool) bool {
	for _, r := range m.Program.IDB {
		for _, occ := range r.ModuleAtoms {
			if !resolved[occ.ModuleName] && occ.ModuleName != m.Name {
				return false
			}
		}
	}
	return true
}
