// Package rewrite implements the ground-program rewriter: renaming
// every predicate in an instance's program by prefixing it with
// "m⟨i⟩·" and substituting each module-atom
// occurrence with the replacement atom the caller's value-call table
// assigned it, so that distinct module instances never collide in the
// shared symbol table.
package rewrite

import (
	"fmt"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/ground"
	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

// InstanceID identifies one module instance: a module name plus its
// actual input tuple, as tracked by the orchestrator's instance table.
type InstanceID uint32

// Prefix returns the "m⟨i⟩·" predicate-renaming prefix for an
// instance, using symtab.ReservedSeparator so it can never collide
// with a user-supplied predicate.
func Prefix(i InstanceID) string {
	return fmt.Sprintf("m%d%s", i, symtab.ReservedSeparator)
}

// Rewriter renames predicates into one module instance's namespace and
// substitutes module-atom occurrences with their resolved replacement
// atoms, writing the results into a shared symbol table.
type Rewriter struct {
	sym *symtab.Table
}

// New builds a Rewriter over the shared symbol table every instance's
// rewritten program is interned into.
func New(sym *symtab.Table) *Rewriter { return &Rewriter{sym: sym} }

// RenameAtom returns the atom id for a source-program atom's text as
// seen under an instance's namespace, interning it on first use.
func (rw *Rewriter) RenameAtom(instance InstanceID, text, pred string, arity int) symtab.AtomID {
	renamedText := Prefix(instance) + text
	renamedPred := Prefix(instance) + pred
	return rw.sym.Intern(renamedText, renamedPred, arity, 0)
}

// Resolver supplies the replacement atom a module-atom occurrence maps
// to, once the value-call set has assigned
// one. It is a narrow view onto the mlp package's instance table, kept
// separate to avoid an import cycle (rewrite is a dependency of mlp,
// not the reverse). outputPattern is the occurrence's ground output
// atom text in the called module's own (unprefixed) namespace, e.g.
// "q(1)" for `@p1[]::q(1)`; the resolver is the one that knows how to
// turn that into the instance-qualified replacement atom.
type Resolver interface {
	ReplacementFor(moduleName string, actualInputs []symtab.AtomID, outputPattern string) (symtab.AtomID, error)
}

// Program rewrites every rule of src into dst's namespace: predicates
// are renamed per RenameAtom, and any still-unexpanded module-atom
// occurrence is replaced by resolver's answer, clearing
// ground.FlagHasModuleAtom once none remain.
func (rw *Rewriter) Program(instance InstanceID, src *ground.Program, resolver Resolver) (*ground.Program, error) {
	dst := ground.NewProgram()
	remap := make(map[symtab.AtomID]symtab.AtomID)

	renamed := func(id symtab.AtomID) symtab.AtomID {
		if r, ok := remap[id]; ok {
			return r
		}
		text := rw.sym.Text(id)
		pred, arity := rw.sym.Predicate(id)
		r := rw.RenameAtom(instance, text, pred, arity)
		remap[id] = r
		return r
	}

	for id := range src.EDB {
		dst.AddFact(renamed(id))
	}

	for _, r := range src.IDB {
		nr := &ground.Rule{Flags: r.Flags, Weight: r.Weight}
		for _, h := range r.Head {
			nr.Head = append(nr.Head, renamed(h))
		}
		for _, lit := range r.Body {
			nr.Body = append(nr.Body, remapLiteral(lit, renamed))
		}
		if r.Flags&ground.FlagHasModuleAtom != 0 {
			if err := rw.substituteModuleAtoms(instance, nr, r, resolver, renamed); err != nil {
				return nil, err
			}
			nr.Flags &^= ground.FlagHasModuleAtom
		}
		dst.AddRule(nr)
	}
	dst.Optimize = src.Optimize
	return dst, nil
}

func remapLiteral(l symtab.Literal, renamed func(symtab.AtomID) symtab.AtomID) symtab.Literal {
	if l.Negative() {
		return symtab.Neg(renamed(l.Atom()))
	}
	return symtab.Pos(renamed(l.Atom()))
}

// substituteModuleAtoms resolves each module-atom occurrence still
// pending on r into its replacement atom, overwriting the
// corresponding renamed body literal. The rewritten rule never carries
// a module-atom list, and Program clears its FlagHasModuleAtom once
// this returns without error.
func (rw *Rewriter) substituteModuleAtoms(instance InstanceID, nr *ground.Rule, src *ground.Rule, resolver Resolver, renamed func(symtab.AtomID) symtab.AtomID) error {
	for _, occ := range src.ModuleAtoms {
		actual := make([]symtab.AtomID, len(occ.ActualInputs))
		for i, a := range occ.ActualInputs {
			actual[i] = renamed(a)
		}
		repl, err := resolver.ReplacementFor(occ.ModuleName, actual, occ.OutputPattern)
		if err != nil {
			return err
		}
		if occ.BodyIndex < len(nr.Body) {
			if occ.Negated {
				nr.Body[occ.BodyIndex] = symtab.Neg(repl)
			} else {
				nr.Body[occ.BodyIndex] = symtab.Pos(repl)
			}
		}
	}
	return nil
}
