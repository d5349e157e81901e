package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

func TestWriteModelSorted(t *testing.T) {
	sym := symtab.New()
	b := sym.Intern("b", "b", 0, 0)
	a := sym.Intern("a", "a", 0, 0)

	var buf bytes.Buffer
	require.NoError(t, WriteModel(&buf, sym, []symtab.AtomID{b, a}, Format{Sorted: true}))
	require.Equal(t, "{a, b}\n", buf.String())
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, 3))
	require.Equal(t, "3 model(s) found.\n", buf.String())
}
