// Package ground defines the ground program data model: ground rules,
// the EDB/IDB split, the output mask, and the annotated-program
// extension used by modular programs. Grounding and safety analysis
// are explicit non-goals; this package is only the data shape the
// CDNL engine and the MLP rewriter consume and produce.
package ground

import "github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"

// RuleID identifies one ground rule within a Program. Like AtomID, rule
// ids are never recycled.
type RuleID uint32

// RuleFlag records structural properties of a rule that the CDNL engine
// and rewriter need without re-deriving them.
type RuleFlag uint8

const (
	// FlagConstraint marks a rule with an empty head.
	FlagConstraint RuleFlag = 1 << iota
	// FlagHasExternalAtom marks a rule whose body contains at least
	// one external atom (represented, post-rewrite, via its
	// replacement atom).
	FlagHasExternalAtom
	// FlagWeight marks a weight rule (per-body-literal weights and a
	// bound); accepted and carried, never exploited.
	FlagWeight
	// FlagHasModuleAtom marks a rule whose body still contains an
	// unexpanded module atom. The rewriter clears this once a rule no
	// longer references any module atom.
	FlagHasModuleAtom
)

// Rule is one ground rule: an ordered, possibly-disjunctive head and an
// ordered body of literals, with structural flags.
type Rule struct {
	ID RuleID
	Head []symtab.AtomID // empty => constraint; len>1 => disjunctive
	Body []symtab.Literal
	Flags RuleFlag
	Weight *WeightInfo // non-nil iff FlagWeight is set

	// ModuleAtoms records, for a rule still bearing FlagHasModuleAtom,
	// the body positions (indices into Body, as the replacement
	// literal the rewriter has not yet substituted) that are actually
	// module-atom occurrences awaiting expansion. It is nil once the
	// flag is cleared.
	ModuleAtoms []ModuleAtomOccurrence
}

// WeightInfo carries a weight rule's per-literal weights and bound.
// Accepted as a no-op boundary condition.
type WeightInfo struct {
	Weights []int
	Bound int
}

// ModuleAtomOccurrence names one `@q[actual-inputs]::out` occurrence in
// a rule body prior to rewriting.
type ModuleAtomOccurrence struct {
	BodyIndex int // index into Rule.Body this occurrence replaces
	ModuleName string // q
	ActualInputs []symtab.AtomID
	OutputPattern string // out, as the rewriter's replacement-predicate suffix
	Negated bool
}

// IsConstraint reports whether r has an empty head.
func (r *Rule) IsConstraint() bool { return len(r.Head) == 0 }

// IsDisjunctive reports whether r's head has more than one atom.
func (r *Rule) IsDisjunctive() bool { return len(r.Head) > 1 }

// Mask is the set of atoms hidden from output: auxiliaries introduced by
// rewriting.
type Mask struct {
	hidden map[symtab.AtomID]struct{}
}

// NewMask returns an empty mask.
func NewMask() *Mask { return &Mask{hidden: make(map[symtab.AtomID]struct{})} }

// Hide marks an atom as hidden from output.
func (m *Mask) Hide(id symtab.AtomID) { m.hidden[id] = struct{}{} }

// Hidden reports whether an atom is hidden.
func (m *Mask) Hidden(id symtab.AtomID) bool {
	_, ok := m.hidden[id]
	return ok
}

// Project returns the subset of atoms in model not hidden by m, i.e.
// model \ mask.
func (m *Mask) Project(model []symtab.AtomID) []symtab.AtomID {
	out := make([]symtab.AtomID, 0, len(model))
	for _, id := range model {
		if !m.Hidden(id) {
			out = append(out, id)
		}
	}
	return out
}

// ExternalAtomRef names the non-ground external atom a replacement atom
// stands for, carried alongside an AnnotatedProgram.
type ExternalAtomRef struct {
	Predicate string
	InputKinds []InputKind
	ActualInputs []symtab.AtomID
	Output symtab.AtomID // the replacement ground atom aux_r[pred](input..., output...)
	NonMonotonic bool
}

// InputKind is one of the external-atom ABI's declared per-position
// argument kinds.
type InputKind uint8

const (
	InputPredicate InputKind = iota
	InputConstant
	InputTuple
)

// Optimize is accepted, parsed, and carried unchanged through the
// rewriter, but never exploited: weighted optimisation is out of scope
// beyond acceptance as a no-op boundary condition, and
// original_source/ParserDriver.cpp shows the original parser accepting
// an `optimize` statement on the same terms.
type Optimize struct {
	Literals []symtab.Literal
	Weights []int
}

// Program is a ground program: an EDB, an ordered IDB, and an output
// mask.
type Program struct {
	EDB map[symtab.AtomID]struct{}
	IDB []*Rule
	Mask *Mask
	// Optimize carries any optimize statements accepted from the
	// input untouched; see the Optimize doc comment.
	Optimize []Optimize
}

// NewProgram returns an empty ground program.
func NewProgram() *Program {
	return &Program{EDB: make(map[symtab.AtomID]struct{}), Mask: NewMask()}
}

// AddFact adds an unconditional fact to the EDB.
func (p *Program) AddFact(id symtab.AtomID) { p.EDB[id] = struct{}{} }

// AddRule appends a rule to the IDB and returns its id.
func (p *Program) AddRule(r *Rule) RuleID {
	r.ID = RuleID(len(p.IDB))
	p.IDB = append(p.IDB, r)
	return r.ID
}

// AnnotatedProgram is a ground program plus, for each external
// replacement atom, the non-ground external atom it stands for.
// Invariant: every external-replacement atom occurs in exactly one
// rule head position created by the rewriter; Validate checks this.
type AnnotatedProgram struct {
	*Program
	ExternalAtoms map[symtab.AtomID]*ExternalAtomRef
}

// NewAnnotatedProgram wraps a ground Program with external-atom
// annotations.
func NewAnnotatedProgram(p *Program) *AnnotatedProgram {
	return &AnnotatedProgram{Program: p, ExternalAtoms: make(map[symtab.AtomID]*ExternalAtomRef)}
}

// Validate checks the "every external-replacement atom occurs in
// exactly one rule head position created by the rewriter" invariant.
func (ap *AnnotatedProgram) Validate() error {
	headCount := make(map[symtab.AtomID]int)
	for _, r := range ap.IDB {
		for _, h := range r.Head {
			headCount[h]++
		}
	}
	for id := range ap.ExternalAtoms {
		if headCount[id] != 1 {
			return &invariantViolation{atom: id, count: headCount[id]}
		}
	}
	return nil
}

type invariantViolation struct {
	atom symtab.AtomID
	count int
}

func (e *invariantViolation) Error() string {
	return "external-replacement atom does not occur in exactly one rule head"
}
