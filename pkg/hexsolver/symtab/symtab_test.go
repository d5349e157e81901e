package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternDedup(t *testing.T) {
	tab := New()
	a := tab.Intern("p(1)", "p", 1, 0)
	b := tab.Intern("p(1)", "p", 1, 0)
	require.Equal(t, a, b)
	require.Equal(t, 1, tab.Len())
}

func TestLiteralComplementRoundTrip(t *testing.T) {
	tab := New()
	id := tab.Intern("q(1)", "q", 1, 0)
	pos := Pos(id)
	neg := Neg(id)
	require.Equal(t, pos, neg.Not())
	require.Equal(t, pos, pos.Not().Not())
	require.True(t, neg.Negative())
	require.False(t, pos.Negative())
	require.Equal(t, id, pos.Atom())
	require.Equal(t, id, neg.Atom())
}

func TestOfPredicate(t *testing.T) {
	tab := New()
	a := tab.Intern("p(1)", "p", 1, 0)
	b := tab.Intern("p(2)", "p", 1, 0)
	tab.Intern("q(1)", "q", 1, 0)
	require.ElementsMatch(t, []AtomID{a, b}, tab.OfPredicate("p"))
}

func TestIsReservedPredicate(t *testing.T) {
	require.True(t, IsReservedPredicate("aux_r[foo]"))
	require.True(t, IsReservedPredicate("m1"+ReservedSeparator+"p"))
	require.False(t, IsReservedPredicate("ordinary_pred"))
}
