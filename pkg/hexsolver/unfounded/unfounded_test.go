package unfounded

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/assign"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

func TestNopAlwaysOK(t *testing.T) {
	var c Nop
	asg := assign.New()
	asg.Assign(symtab.Pos(1), assign.DecisionReason)
	loop, ok := c.Check(context.Background(), asg)
	require.True(t, ok)
	require.Nil(t, loop)
}
