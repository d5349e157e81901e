package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/ground"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

type fakeResolver struct{ atom symtab.AtomID }

func (r fakeResolver) ReplacementFor(string, []symtab.AtomID, string) (symtab.AtomID, error) {
	return r.atom, nil
}

func TestPrefixIsReserved(t *testing.T) {
	p := Prefix(InstanceID(3))
	require.True(t, symtab.IsReservedPredicate(p+"foo"))
}

func TestProgramRenamesPredicates(t *testing.T) {
	sym := symtab.New()

	src := ground.NewProgram()
	a := sym.Intern("p(1)", "p", 1, 0)
	src.AddFact(a)
	src.AddRule(&ground.Rule{Head: []symtab.AtomID{a}})

	rw := New(sym)
	out, err := rw.Program(InstanceID(1), src, fakeResolver{})
	require.NoError(t, err)

	var renamed symtab.AtomID
	for id := range out.EDB {
		renamed = id
	}
	pred, _ := sym.Predicate(renamed)
	require.Equal(t, Prefix(InstanceID(1))+"p", pred)
	require.NotEqual(t, a, renamed)
}

func TestRenameAtomIsIdempotentPerInstance(t *testing.T) {
	sym := symtab.New()
	rw := New(sym)
	id1 := rw.RenameAtom(InstanceID(1), "p(1)", "p", 1)
	id2 := rw.RenameAtom(InstanceID(1), "p(1)", "p", 1)
	require.Equal(t, id1, id2)

	id3 := rw.RenameAtom(InstanceID(2), "p(1)", "p", 1)
	require.NotEqual(t, id1, id3)
}
