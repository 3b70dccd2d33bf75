package optimizer

import "foppl.dev/compiler/pkg/ast"

// rewriteBody implements spec.md §4.4's Body normalization: a pure
// statement other than the last is dead and dropped, and a non-global Def
// whose bound name is never referenced again, and whose value is pure, is
// dropped along with it.
func (o *Optimizer) rewriteBody(v *ast.Body, e *env) (ast.Node, bool, error) {
	ne := newEnv(e)
	items := make([]ast.Node, 0, len(v.Items))
	changed := false
	for i, it := range v.Items {
		rw, c, err := o.step(it, ne)
		if err != nil {
			return nil, false, err
		}
		changed = changed || c
		last := i == len(v.Items)-1
		if !last && isPure(rw) {
			if _, isDef := rw.(*ast.Def); !isDef {
				changed = true
				continue
			}
		}
		items = append(items, rw)
	}

	items = dropDeadDefs(items)

	if len(items) == 1 {
		return items[0], true, nil
	}
	if !changed && len(items) == len(v.Items) {
		return v, false, nil
	}
	return &ast.Body{Items: items}, true, nil
}

// dropDeadDefs removes a non-global, pure-valued Def whose name has no
// remaining reference among the later items.
func dropDeadDefs(items []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(items))
	for i, it := range items {
		def, ok := it.(*ast.Def)
		if ok && !def.Global && def.Name != "" && isPure(def.Value) {
			used := false
			for _, later := range items[i+1:] {
				if countOccurrences(later, def.Name) > 0 {
					used = true
					break
				}
			}
			if !used {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}
