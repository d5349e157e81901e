package extatom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/assign"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/ground"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

type countingPlugin struct {
	calls int
	out []Tuple
}

func (p *countingPlugin) Retrieve(_ context.Context, _ Interpretation, _ []symtab.AtomID) ([]Tuple, error) {
	p.calls++
	return p.out, nil
}

func TestEvaluateNoMatchYieldsSupportNogood(t *testing.T) {
	sym := symtab.New()
	target := sym.Intern("x", "x", 1, 0)
	repl := sym.Intern("aux_r[ext](x)", "aux_r[ext]", 1, symtab.FlagExternalReplacement)

	refs := map[symtab.AtomID]*ground.ExternalAtomRef{
		repl: {
			Predicate: "ext",
			InputKinds: []ground.InputKind{ground.InputConstant},
			ActualInputs: []symtab.AtomID{target},
			Output: repl,
		},
	}
	reg := New(sym, refs)
	plugin := &countingPlugin{}
	reg.Register("ext", plugin)

	asg := assign.New()
	out, err := reg.Evaluate(context.Background(), asg)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, []symtab.Literal{symtab.Pos(repl)}, out[0])
	require.Equal(t, 1, plugin.calls)
}

func TestEvaluateCachesRepeatedCalls(t *testing.T) {
	sym := symtab.New()
	target := sym.Intern("x", "x", 1, 0)
	repl := sym.Intern("aux_r[ext](x)", "aux_r[ext]", 1, symtab.FlagExternalReplacement)
	refs := map[symtab.AtomID]*ground.ExternalAtomRef{
		repl: {Predicate: "ext", ActualInputs: []symtab.AtomID{target}, Output: repl},
	}
	reg := New(sym, refs)
	plugin := &countingPlugin{out: []Tuple{{target}}}
	reg.Register("ext", plugin)

	asg := assign.New()
	_, err := reg.Evaluate(context.Background(), asg)
	require.NoError(t, err)
	_, err = reg.Evaluate(context.Background(), asg)
	require.NoError(t, err)
	require.Equal(t, 1, plugin.calls) // second call hits the cache
}

func TestEvaluateNoCacheDisablesCache(t *testing.T) {
	sym := symtab.New()
	target := sym.Intern("x", "x", 1, 0)
	repl := sym.Intern("aux_r[ext](x)", "aux_r[ext]", 1, symtab.FlagExternalReplacement)
	refs := map[symtab.AtomID]*ground.ExternalAtomRef{
		repl: {Predicate: "ext", ActualInputs: []symtab.AtomID{target}, Output: repl},
	}
	reg := New(sym, refs, WithNoCache())
	plugin := &countingPlugin{out: []Tuple{{target}}}
	reg.Register("ext", plugin)

	asg := assign.New()
	reg.Evaluate(context.Background(), asg)
	reg.Evaluate(context.Background(), asg)
	require.Equal(t, 2, plugin.calls)
}
