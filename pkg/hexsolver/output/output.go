// Package output formats answer sets for display. Output formatting
// sits outside the solver core proper; this package exists
// only to give cmd/hexsolve something concrete to call, grounded on
// original_source/ModelPrinter.cpp's behavior of printing one
// comma-separated, brace-delimited line per model. WriteModel prints
// the atoms it is given; projection through a mask is the caller's job.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hexsolve/hexsolve/pkg/hexsolver/symtab"
)

// Format controls how a model is rendered.
type Format struct {
	// Sorted, when true, prints atoms in lexicographic text order
	// rather than in the order they appear in the model slice.
	Sorted bool
}

// WriteModel writes one formatted model line to w.
func WriteModel(w io.Writer, sym *symtab.Table, model []symtab.AtomID, f Format) error {
	texts := make([]string, len(model))
	for i, id := range model {
		texts[i] = sym.Text(id)
	}
	if f.Sorted {
		sort.Strings(texts)
	}
	_, err := fmt.Fprintf(w, "{%s}\n", strings.Join(texts, ", "))
	return err
}

// WriteSummary writes a one-line count of models found, used at the
// end of an --allmodels run.
func WriteSummary(w io.Writer, count int) error {
	_, err := fmt.Fprintf(w, "%d model(s) found.\n", count)
	return err
}
