// Package unfounded implements the unfounded-set boundary: after the
// CDNL engine reaches a candidate total assignment, check whether any
// nonempty subset of the true atoms is unfounded (derivable only
// through a positive dependency cycle through itself), and if so
// return a loop nogood ruling that cycle out.
//
// GiniChecker answers this by encoding "does a smaller model exist that
// agrees with the candidate off U and disagrees on all of U" as a SAT
// instance and asking github.com/go-air/gini to solve it, handing the
// whole constraint problem to a SAT backend rather than hand-rolling
// search for this sub-problem.
package unfounded

import (
	"context"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/assign"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/ground"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

// Nop is the trivial checker for programs known to be tight (no
// positive recursion through disjunction or negation), where no
// unfounded-set check is needed.
type Nop struct{}

func (Nop) Check(context.Context, *assign.Assignment) ([]symtab.Literal, bool) { return nil, true }

// GiniChecker checks candidate models against a ground program's rules
// using a SAT encoding solved by go-air/gini.
type GiniChecker struct {
	program *ground.Program
	atoms []symtab.AtomID
}

// NewGiniChecker builds a checker over a rewritten instance's ground
// program and its decidable atom vocabulary.
func NewGiniChecker(p *ground.Program, atoms []symtab.AtomID) *GiniChecker {
	return &GiniChecker{program: p, atoms: atoms}
}

// Check looks for a smaller support for the atoms currently true: it
// asks gini for an assignment that (a) satisfies every rule's
// completion implication, (b) disagrees with the candidate on at least
// one currently-true atom, and (c) agrees with the candidate everywhere
// else. If gini finds one, the atoms where the two disagree are an
// unfounded set, and Check returns a nogood over the current
// assignment's literals on that set; otherwise the candidate is
// founded and Check reports ok.
func (c *GiniChecker) Check(ctx context.Context, asg *assign.Assignment) ([]symtab.Literal, bool) {
	trueAtoms := c.trueAtoms(asg)
	if len(trueAtoms) == 0 {
		return nil, true
	}

	g := gini.New()
	lit := make(map[symtab.AtomID]z.Lit, len(c.atoms))
	for _, a := range c.atoms {
		lit[a] = g.Lit()
	}

	for _, r := range c.program.IDB {
		if r.IsConstraint() || r.IsDisjunctive() {
			continue // disjunctive/constraint completion is left to the CDNL engine's own nogoods
		}
		bodyLits := make([]z.Lit, 0, len(r.Body))
		for _, bl := range r.Body {
			l, ok := lit[bl.Atom()]
			if !ok {
				continue
			}
			if bl.Negative() {
				bodyLits = append(bodyLits, l.Not())
			} else {
				bodyLits = append(bodyLits, l)
			}
		}
		if len(r.Head) != 1 {
			continue
		}
		headLit, ok := lit[r.Head[0]]
		if !ok {
			continue
		}
		// head <- AND(bodyLits): clauses (not b1 or... or not bn or head)
		cl := append([]z.Lit{headLit}, negateAll(bodyLits)...)
		for _, l := range cl {
			g.Add(l)
		}
		g.Add(z.LitNull)
	}

	// Require at least one disagreement among the currently-true atoms.
	disagree := make([]z.Lit, 0, len(trueAtoms))
	for _, a := range trueAtoms {
		disagree = append(disagree, lit[a].Not())
	}
	for _, l := range disagree {
		g.Add(l)
	}
	g.Add(z.LitNull)

	// Pin every atom not currently true to its candidate value, so the
	// search is confined to disagreements within the true set.
	for _, a := range c.atoms {
		if asg.Value(a) != assign.True {
			l := lit[a]
			if asg.Value(a) == assign.False {
				g.Add(l.Not())
				g.Add(z.LitNull)
			}
		}
	}

	if g.Solve() != 1 { // 1 == sat per go-air/gini/inter.Sat convention
		return nil, true
	}

	var loop []symtab.Literal
	for _, a := range trueAtoms {
		if g.Value(lit[a]) {
			continue // still true in the smaller support: not part of this loop
		}
		loop = append(loop, symtab.Pos(a))
	}
	if len(loop) == 0 {
		return nil, true
	}
	return loop, false
}

func (c *GiniChecker) trueAtoms(asg *assign.Assignment) []symtab.AtomID {
	var out []symtab.AtomID
	for _, a := range c.atoms {
		if asg.Value(a) == assign.True {
			out = append(out, a)
		}
	}
	return out
}

func negateAll(lits []z.Lit) []z.Lit {
	out := make([]z.Lit, len(lits))
	for i, l := range lits {
		out[i] = l.Not()
	}
	return out
}
