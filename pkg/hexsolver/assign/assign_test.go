package assign

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

func TestAssignAndValue(t *testing.T) {
	a := New()
	a.Assign(symtab.Pos(1), DecisionReason)
	require.Equal(t, True, a.Value(1))
	require.True(t, a.IsTrue(symtab.Pos(1)))
	require.True(t, a.IsFalse(symtab.Neg(1)))
	require.False(t, a.IsFalse(symtab.Pos(1)))
}

func TestUndoToLevel(t *testing.T) {
	a := New()
	a.Assign(symtab.Pos(1), DecisionReason)
	a.PushLevel()
	a.Assign(symtab.Pos(2), DecisionReason)
	a.PushLevel()
	a.Assign(symtab.Pos(3), DecisionReason)
	require.Equal(t, 2, a.Level())

	a.UndoToLevel(1)
	require.Equal(t, 1, a.Level())
	require.Equal(t, Unset, a.Value(3))
	require.Equal(t, True, a.Value(2))
	require.Equal(t, True, a.Value(1))
}

func TestPhaseSavingSurvivesUndo(t *testing.T) {
	a := New()
	a.PushLevel()
	a.Assign(symtab.Neg(5), DecisionReason)
	require.True(t, a.Phase(5))
	a.UndoToLevel(0)
	require.Equal(t, Unset, a.Value(5))
	require.True(t, a.Phase(5)) // phase survives undo
}

func TestActivityDecay(t *testing.T) {
	a := New()
	a.SetDecayEvery(2)
	a.Bump(1, 1.0)
	a.NotifyConflict()
	require.Equal(t, 1.0, a.Activity(1))
	a.NotifyConflict()
	require.Equal(t, 0.5, a.Activity(1))
}

func TestIndexOfMonotonic(t *testing.T) {
	a := New()
	a.Assign(symtab.Pos(1), DecisionReason)
	a.Assign(symtab.Pos(2), DecisionReason)
	require.Less(t, a.IndexOf(1), a.IndexOf(2))
}
