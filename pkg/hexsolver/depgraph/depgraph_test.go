package depgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/rewrite"
)

func TestReachableFrom(t *testing.T) {
	g := New()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(1, 3)

	got := g.ReachableFrom(rewrite.InstanceID(1))
	require.ElementsMatch(t, []rewrite.InstanceID{1, 2, 3}, got)
}

func TestHasCycle(t *testing.T) {
	g := New()
	g.AddEdge(1, 2)
	g.AddEdge(2, 1)
	require.True(t, g.HasCycle(1))

	acyclic := New()
	acyclic.AddEdge(1, 2)
	require.False(t, acyclic.HasCycle(1))
}

func TestSuccessorsOfUnknownIsEmpty(t *testing.T) {
	g := New()
	require.Empty(t, g.Successors(99))
}
