// Package symtab assigns stable integer atom ids to ground atoms and
// maps predicate symbols to and from those ids. It is an append-only
// registry: ids and rule ids are never recycled for the lifetime of a
// single solve, so
// references into it (AtomID values captured anywhere else) remain valid
// for as long as the owning Table does.
package symtab

import (
	"fmt"
	"strings"
)

// AtomID is a compact integer identifying one ground atom. Bit 0 is
// reserved for sign when an AtomID is reinterpreted as a Literal (see
// Literal below); AtomID values themselves are always the "positive"
// form, i.e. AtomID values are even when laid out the way Literal does.
type AtomID uint32

// Flag bits recorded alongside an AtomID's string identity.
type Flag uint8

const (
	// FlagAuxiliary marks an atom introduced by the ground-program
	// rewriter rather than appearing in original input.
	FlagAuxiliary Flag = 1 << iota
	// FlagExternalReplacement marks an auxiliary atom standing in for
	// an external atom's input/output tuple (aux_r[pred](...)).
	FlagExternalReplacement
)

// ReservedSeparator is the separator used in instance-prefixed
// predicates and must be rejected by the parser in
// user-supplied predicate names.
const ReservedSeparator = "·" // '·'

// ReservedPrefixes names the auxiliary-predicate prefixes that are
// likewise reserved.
var ReservedPrefixes = []string{"aux_r", "aux_input"}

// IsReservedPredicate reports whether a user-supplied predicate symbol
// collides with the solver's reserved namespace.
func IsReservedPredicate(pred string) bool {
	if strings.Contains(pred, ReservedSeparator) {
		return true
	}
	for _, p := range ReservedPrefixes {
		if strings.HasPrefix(pred, p) {
			return true
		}
	}
	return false
}

// entry is the per-atom bookkeeping the table keeps: its canonical
// string form, predicate symbol, arity and flags.
type entry struct {
	text string
	pred string
	arity int
	flags Flag
}

// Table is a multi-index container over atoms. Atom ids are never recycled; iteration via Len/AtomAt
// is in insertion order.
type Table struct {
	byID []entry
	byText map[string]AtomID
	byPred map[string][]AtomID
}

// New returns an empty Table. AtomID 0 is reserved (it is the zero value
// and is never issued), matching the z.LitNull convention go-air/gini
// uses for "no literal".
func New() *Table {
	return &Table{
		byID: make([]entry, 1, 64), // index 0 is the reserved null slot
		byText: make(map[string]AtomID, 64),
		byPred: make(map[string][]AtomID, 16),
	}
}

// Intern returns the AtomID for the ground atom with the given canonical
// text (e.g. "p(1,2)"), predicate symbol and arity, allocating a new one
// if this is the first time it has been seen. Interning the same text
// twice always returns the same id (multi-index container invariant).
func (t *Table) Intern(text, pred string, arity int, flags Flag) AtomID {
	if id, ok := t.byText[text]; ok {
		return id
	}
	id := AtomID(len(t.byID))
	t.byID = append(t.byID, entry{text: text, pred: pred, arity: arity, flags: flags})
	t.byText[text] = id
	t.byPred[pred] = append(t.byPred[pred], id)
	return id
}

// Lookup returns the AtomID already interned for text, if any.
func (t *Table) Lookup(text string) (AtomID, bool) {
	id, ok := t.byText[text]
	return id, ok
}

// Text returns the canonical string form of an atom id.
func (t *Table) Text(id AtomID) string {
	if int(id) >= len(t.byID) || id == 0 {
		return ""
	}
	return t.byID[id].text
}

// Predicate returns the predicate symbol and arity of an atom id.
func (t *Table) Predicate(id AtomID) (string, int) {
	if int(id) >= len(t.byID) || id == 0 {
		return "", 0
	}
	e := t.byID[id]
	return e.pred, e.arity
}

// OfPredicate returns every atom id interned so far with the given
// predicate symbol, in insertion order.
func (t *Table) OfPredicate(pred string) []AtomID {
	return t.byPred[pred]
}

// Flags returns the flags recorded for an atom id.
func (t *Table) Flags(id AtomID) Flag {
	if int(id) >= len(t.byID) || id == 0 {
		return 0
	}
	return t.byID[id].flags
}

// Has reports whether a flag bit is set.
func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// Len returns the number of interned atoms (excluding the reserved null
// slot).
func (t *Table) Len() int { return len(t.byID) - 1 }

// Literal is an AtomID together with a negation-as-failure bit. Two
// literals are complementary iff they share the atom id and differ in
// the bit. The encoding follows the dimacs-style
// convention github.com/go-air/gini/z.Lit uses: the low bit carries
// sign. unfounded.GiniChecker does not rely on this; it allocates its
// own gini literals through a per-atom map.
type Literal uint32

// Pos returns the positive literal for an atom id.
func Pos(id AtomID) Literal { return Literal(id) << 1 }

// Neg returns the negative (negation-as-failure) literal for an atom id.
func Neg(id AtomID) Literal { return Pos(id) | 1 }

// Atom returns the underlying atom id of a literal.
func (l Literal) Atom() AtomID { return AtomID(l >> 1) }

// Negative reports whether l carries the NAF bit.
func (l Literal) Negative() bool { return l&1 != 0 }

// Not returns the complementary literal. complement(complement(l)) == l
// holds by construction since flipping the low bit twice is a no-op.
func (l Literal) Not() Literal { return l ^ 1 }

// Signed returns +1 for a positive literal, -1 for a negative one.
func (l Literal) Signed() int {
	if l.Negative() {
		return -1
	}
	return 1
}

func (l Literal) String() string {
	if l.Negative() {
		return fmt.Sprintf("not(%d)", l.Atom())
	}
	return fmt.Sprintf("%d", l.Atom())
}
