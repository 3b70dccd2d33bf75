// Package ssa renames every binding to a unique static-single-assignment
// instance and inserts phi-definitions after an If whose branches assign a
// name still live afterwards, then lifts If out from underneath the
// operators that wrap it so every Sample/Observe distribution argument
// reaches an atomic leaf (spec.md §7). Grounded on
// original_source/pyppl/transforms/ppl_static_assignments.py (renaming and
// phi-insertion) and original_source/pyppl/ppl_cond_expander.py
// (If-over-operator lifting).
package ssa

import "foppl.dev/compiler/pkg/ast"

// Run applies static single assignment renaming followed by condition
// expansion, returning the transformed tree.
func Run(root ast.Node) (ast.Node, error) {
	assigned, err := newRenamer().visit(root)
	if err != nil {
		return nil, err
	}
	return expandConditions(assigned)
}
