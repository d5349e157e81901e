// Package extatom implements the external-atom evaluator boundary:
// given a (possibly partial) assignment, it projects the declared
// input predicates, calls the registered plugin's retrieve function,
// and turns the returned output tuples into support nogoods over the
// replacement atom the rewriter introduced.
//
// Concurrent retrieve calls are fanned out with golang.org/x/sync/errgroup
// (still a barrier before results reach the engine, since evaluation
// order among distinct external atoms is unspecified), and duplicate
// concurrent calls for the same (atom, input tuple) are collapsed with
// golang.org/x/sync/singleflight -- the same dedup mitchellh/hashstructure
// gives pkg/hexsolver/mlp for instance identity, applied here to
// plugin-call identity instead.
package extatom

import (
	"context"
	"fmt"

	"github.com/mitchellh/hashstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/assign"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/ground"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/hexerr"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

// Tuple is one output tuple a plugin's retrieve call reports.
type Tuple []symtab.AtomID

// Plugin is the external-atom ABI: given the projected input
// interpretation and the actual input tuple, return every output
// tuple the external atom holds for.
type Plugin interface {
	// Retrieve evaluates the external atom once for one input tuple
	// against the projected interpretation of its predicate inputs.
	Retrieve(ctx context.Context, input Interpretation, actualInputs []symtab.AtomID) ([]Tuple, error)
}

// Interpretation is the read-only, predicate-masked view of the
// current assignment a plugin receives: only atoms whose predicate is
// declared as one of the external atom's predicate inputs are visible.
type Interpretation struct {
	True []symtab.AtomID
}

// Registry maps external-atom predicate names to their plugin
// implementation, the replacement-atom table, and a result cache keyed
// by (external atom id, projected interpretation, input tuple).
type Registry struct {
	log logrus.FieldLogger
	plugins map[string]Plugin
	sym *symtab.Table
	refs map[symtab.AtomID]*ground.ExternalAtomRef
	cache map[uint64][]Tuple
	group singleflight.Group
	noCache bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger injects a structured logger.
func WithLogger(l logrus.FieldLogger) Option { return func(r *Registry) { r.log = l } }

// WithNoCache disables the result cache (wired to the CLI's --nocache
// flag), forcing every retrieve call to re-run the plugin.
func WithNoCache() Option { return func(r *Registry) { r.noCache = true } }

// New builds a Registry over a symbol table and the external-atom
// annotations of a ground program.
func New(sym *symtab.Table, refs map[symtab.AtomID]*ground.ExternalAtomRef, opts ...Option) *Registry {
	r := &Registry{
		log: logrus.StandardLogger(),
		plugins: make(map[string]Plugin),
		sym: sym,
		refs: refs,
		cache: make(map[uint64][]Tuple),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register installs a plugin implementation for a predicate name.
func (r *Registry) Register(pred string, p Plugin) { r.plugins[pred] = p }

// Evaluate implements cdnl.ExternalEvaluator: for every annotated
// replacement atom, whatever its current value, call the plugin (or
// reuse a cached result), and turn the (possibly empty) result into a
// support nogood tying the replacement atom's truth to its output
// tuples.
func (r *Registry) Evaluate(ctx context.Context, asg *assign.Assignment) ([][]symtab.Literal, error) {
	if len(r.refs) == 0 {
		return nil, nil
	}
	type job struct {
		atom symtab.AtomID
		ref *ground.ExternalAtomRef
	}
	jobs := make([]job, 0, len(r.refs))
	for atom, ref := range r.refs {
		jobs = append(jobs, job{atom, ref})
	}

	results := make([][]symtab.Literal, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			lits, err := r.evalOne(gctx, asg, j.atom, j.ref)
			if err != nil {
				return errors.Wrapf(err, "external atom %s", j.ref.Predicate)
			}
			results[i] = lits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &hexerr.PluginError{Cause: err}
	}

	var out [][]symtab.Literal
	for _, lits := range results {
		if lits != nil {
			out = append(out, lits)
		}
	}
	return out, nil
}

func (r *Registry) evalOne(ctx context.Context, asg *assign.Assignment, atom symtab.AtomID, ref *ground.ExternalAtomRef) ([]symtab.Literal, error) {
	plugin, ok := r.plugins[ref.Predicate]
	if !ok {
		return nil, &hexerr.PluginError{ExternalAtom: ref.Predicate, Cause: errors.New("no plugin registered")}
	}

	input := r.project(asg, ref)
	key, err := cacheKey(ref.Predicate, input, ref.ActualInputs)
	if err != nil {
		return nil, err
	}

	if !r.noCache {
		if tuples, hit := r.cache[key]; hit {
			return r.supportNogood(atom, ref, tuples), nil
		}
	}

	v, err, _ := r.group.Do(fmt.Sprint(key), func() (interface{}, error) {
		return plugin.Retrieve(ctx, input, ref.ActualInputs)
	})
	if err != nil {
		return nil, err
	}
	tuples := v.([]Tuple)
	if !r.noCache {
		r.cache[key] = tuples
	}
	return r.supportNogood(atom, ref, tuples), nil
}

// project builds the masked Interpretation a plugin is allowed to see:
// only atoms of predicates the external atom declared as predicate
// inputs.
func (r *Registry) project(asg *assign.Assignment, ref *ground.ExternalAtomRef) Interpretation {
	var in Interpretation
	for i, kind := range ref.InputKinds {
		if kind != ground.InputPredicate || i >= len(ref.ActualInputs) {
			continue
		}
		pred, _ := r.sym.Predicate(ref.ActualInputs[i])
		for _, id := range r.sym.OfPredicate(pred) {
			if asg.Value(id) == assign.True {
				in.True = append(in.True, id)
			}
		}
	}
	return in
}

// supportNogood ties the replacement atom's truth to the tuple set the
// plugin reported: the replacement atom is true exactly when its tuple
// appears among the plugin's output, enforced here as
// {replacement-true, no-matching-tuple} being forbidden -- a nogood
// over the single replacement literal when no tuple matched, absent
// otherwise (the atom remains free to be decided false).
func (r *Registry) supportNogood(atom symtab.AtomID, ref *ground.ExternalAtomRef, tuples []Tuple) []symtab.Literal {
	for _, t := range tuples {
		if tupleMatches(t, ref) {
			return nil
		}
	}
	return []symtab.Literal{symtab.Pos(atom)}
}

func tupleMatches(t Tuple, ref *ground.ExternalAtomRef) bool {
	if len(t) != len(ref.ActualInputs) {
		return false
	}
	for i := range t {
		if t[i] != ref.ActualInputs[i] {
			return false
		}
	}
	return true
}

func cacheKey(pred string, input Interpretation, actual []symtab.AtomID) (uint64, error) {
	h, err := hashstructure.Hash(struct {
		Pred string
		True []symtab.AtomID
		Actual []symtab.AtomID
	}{pred, input.True, actual}, nil)
	if err != nil {
		return 0, errors.Wrap(err, "hashing external-atom call key")
	}
	return h, nil
}
