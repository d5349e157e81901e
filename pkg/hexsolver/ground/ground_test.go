package ground

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

func TestMaskProject(t *testing.T) {
	m := NewMask()
	m.Hide(2)
	got := m.Project([]symtab.AtomID{1, 2, 3})
	require.Equal(t, []symtab.AtomID{1, 3}, got)
}

func TestRuleClassification(t *testing.T) {
	constraint := &Rule{Head: nil}
	require.True(t, constraint.IsConstraint())

	disj := &Rule{Head: []symtab.AtomID{1, 2}}
	require.True(t, disj.IsDisjunctive())
	require.False(t, disj.IsConstraint())
}

func TestAnnotatedProgramValidate(t *testing.T) {
	p := NewProgram()
	rule := &Rule{Head: []symtab.AtomID{10}}
	p.AddRule(rule)
	ap := NewAnnotatedProgram(p)
	ap.ExternalAtoms[10] = &ExternalAtomRef{Predicate: "ext", Output: 10}
	require.NoError(t, ap.Validate())

	ap.ExternalAtoms[11] = &ExternalAtomRef{Predicate: "ext2", Output: 11}
	require.Error(t, ap.Validate())
}

func TestRuleShapeDiffIgnoresID(t *testing.T) {
	want := &Rule{Head: []symtab.AtomID{1, 2}, Body: []symtab.Literal{symtab.Pos(3)}}
	got := &Rule{Head: []symtab.AtomID{1, 2}, Body: []symtab.Literal{symtab.Pos(3)}, ID: 7}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Rule{}, "ID")); diff != "" {
		t.Fatalf("rule mismatch (-want +got):\n%s", diff)
	}
}

func TestProgramAddFactAndRule(t *testing.T) {
	p := NewProgram()
	p.AddFact(1)
	id := p.AddRule(&Rule{Head: []symtab.AtomID{2}})
	require.Equal(t, RuleID(0), id)
	_, hasFact := p.EDB[1]
	require.True(t, hasFact)
	require.Len(t, p.IDB, 1)
}
