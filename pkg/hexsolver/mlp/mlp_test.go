package mlp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/ground"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/rewrite"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

// TestSingleModuleNoCalls exercises the simplest case: a main module
// with no module atoms, a:- not b. / b:- not a. choice as in the
// two-atom scenario, routed through the orchestrator rather than a bare
// cdnl.Engine.
func TestSingleModuleNoCalls(t *testing.T) {
	sym := symtab.New()
	a := sym.Intern("a", "a", 0, 0)
	b := sym.Intern("b", "b", 0, 0)

	prog := ground.NewProgram()
	prog.AddRule(&ground.Rule{Head: []symtab.AtomID{a}, Body: []symtab.Literal{symtab.Neg(b)}})
	prog.AddRule(&ground.Rule{Head: []symtab.AtomID{b}, Body: []symtab.Literal{symtab.Neg(a)}})

	modules := map[string]*Module{
		"main": {Name: "main", Program: prog, MainTopLevel: true},
	}
	orch := New(sym, modules)

	var models [][]symtab.AtomID
	err := orch.Solve(context.Background(), nil, func(m []symtab.AtomID) {
		models = append(models, m)
	})
	require.NoError(t, err)
	require.Len(t, models, 2)

	// The root instance is always id 1 (instanceFor allocates it first,
	// out of Solve itself), so the rewritten atoms' identities are
	// deterministic.
	wantA := sym.Intern(rewrite.Prefix(rewrite.InstanceID(1))+"a", rewrite.Prefix(rewrite.InstanceID(1))+"a", 0, 0)
	wantB := sym.Intern(rewrite.Prefix(rewrite.InstanceID(1))+"b", rewrite.Prefix(rewrite.InstanceID(1))+"b", 0, 0)
	require.ElementsMatch(t, [][]symtab.AtomID{{wantA}, {wantB}}, models)
}

// TestModuleCallResolvesIdentity exercises a cross-module call: module
// p1 declares no inputs and the single fact q(1).; the main module's
// rule q(1):-@p1[]::q(1). should resolve the module atom to p1's own
// q(1) and produce exactly one model containing that atom under the
// main instance's namespace.
func TestModuleCallResolvesIdentity(t *testing.T) {
	sym := symtab.New()
	q1 := sym.Intern("q(1)", "q", 1, 0)

	p1Prog := ground.NewProgram()
	p1Prog.AddFact(q1)

	mainProg := ground.NewProgram()
	mainProg.AddRule(&ground.Rule{
		Head: []symtab.AtomID{q1},
		Body: []symtab.Literal{symtab.Pos(q1)},
		Flags: ground.FlagHasModuleAtom,
		ModuleAtoms: []ground.ModuleAtomOccurrence{
			{BodyIndex: 0, ModuleName: "p1", OutputPattern: "q(1)"},
		},
	})

	modules := map[string]*Module{
		"p1": {Name: "p1", Program: p1Prog},
		"main": {Name: "main", Program: mainProg, MainTopLevel: true},
	}
	orch := New(sym, modules)

	var models [][]symtab.AtomID
	err := orch.Solve(context.Background(), nil, func(m []symtab.AtomID) {
		models = append(models, m)
	})
	require.NoError(t, err)
	require.Len(t, models, 1)

	want := sym.Intern(rewrite.Prefix(rewrite.InstanceID(1))+"q(1)", rewrite.Prefix(rewrite.InstanceID(1))+"q", 1, 0)
	require.Equal(t, []symtab.AtomID{want}, models[0])
}

func TestStratificationRejectsUndefinedModule(t *testing.T) {
	sym := symtab.New()
	prog := ground.NewProgram()
	prog.AddRule(&ground.Rule{
		Head: []symtab.AtomID{sym.Intern("h", "h", 0, 0)},
		ModuleAtoms: []ground.ModuleAtomOccurrence{
			{ModuleName: "missing"},
		},
	})
	modules := map[string]*Module{
		"main": {Name: "main", Program: prog, MainTopLevel: true},
	}
	orch := New(sym, modules)
	err := orch.Solve(context.Background(), nil, func([]symtab.AtomID) {})
	require.Error(t, err)
}
