// Package symtab assigns every binding in the program a globally-unique
// mangled name and infers a type for every node, grounded on
// ppl_symbol_table.py's Symbol/SymbolTableGenerator, in a single scoped
// pre-order walk.
package symtab

import (
	"fmt"

	"foppl.dev/compiler/pkg/types"
)

// Symbol is the record attached to every binding. ModifyCount of -1 marks a
// forward-referenced name declared but never (yet) assigned — mirroring the
// "declared missing" sentinel in the original symbol table.
type Symbol struct {
	Name        string
	MangledName string
	UsageCount  int
	ModifyCount int
	ReadOnly    bool
	ValueType   types.Type
}

// IsReadOnly reports whether the binding is implicitly read-only: it has
// been modified at most once (invariant from spec.md §3: "A name with
// modify-count ≤ 1 is implicitly read-only after the pass").
func (s *Symbol) IsReadOnly() bool { return s.ReadOnly || s.ModifyCount <= 1 }

// counter is process-wide in the original; here it is owned by the generator
// of each Generate call, so two independent compilations never interact (spec.md §5/§9).
type counter struct{ n int }

func (c *counter) next() int { c.n++; return c.n }

func mangle(name string, id int) string { return fmt.Sprintf("%s__sym_%d__", name, id) }
