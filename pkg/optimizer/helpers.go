package optimizer

import "foppl.dev/compiler/pkg/ast"

// asValue reports whether n is a literal *ast.Value.
func asValue(n ast.Node) (*ast.Value, bool) {
	v, ok := n.(*ast.Value)
	return v, ok
}

// asVector returns the elements of n if it is a ValueVector or a Vector all
// of whose items are embeddable (a literal, a symbol reference, or a call
// with no Sample/Observe inside), i.e. any fixed-length sequence whose
// items can be copied without duplicating a stochastic effect.
func asVector(n ast.Node) ([]ast.Node, bool) {
	switch v := n.(type) {
	case *ast.ValueVector:
		return v.Items, true
	case *ast.Vector:
		for _, it := range v.Items {
			if !isEmbeddable(it) {
				return nil, false
			}
		}
		return v.Items, true
	default:
		return nil, false
	}
}

// hasStochasticEffect reports whether n's subtree contains a Sample or Observe node —
// i.e. whether evaluating n has a stochastic effect on the model.
func hasStochasticEffect(n ast.Node) bool {
	found := false
	ast.Walk(n, func(c ast.Node) {
		switch c.Tag() {
		case ast.TagSample, ast.TagObserve:
			found = true
		}
	})
	return found
}

// isEmbeddable implements spec.md §8 property 6: a literal, a symbol
// reference, or a call whose transitive effect set is empty.
func isEmbeddable(n ast.Node) bool {
	switch n.(type) {
	case *ast.Value, *ast.ValueVector, *ast.Symbol:
		return true
	}
	if _, ok := n.(*ast.Call); ok {
		return !hasStochasticEffect(n)
	}
	return false
}

// isPure reports whether evaluating n has no observable side effect
// (no Sample/Observe anywhere in its subtree). Used to gate dead-code
// elimination and argument-evaluation reordering during call inlining.
func isPure(n ast.Node) bool { return !hasStochasticEffect(n) }

// countOccurrences counts the Symbol references to name within n.
func countOccurrences(n ast.Node, name string) int {
	count := 0
	ast.Walk(n, func(c ast.Node) {
		if sym, ok := c.(*ast.Symbol); ok && sym.Name == name {
			count++
		}
	})
	return count
}

// sameSymbol reports whether a and b are both Symbol references to the
// same mangled name — the only case the identity rules (x-x=0, x/x=1) can
// safely apply without risking re-evaluating a side-effecting expression
// twice.
func sameSymbol(a, b ast.Node) bool {
	sa, ok := a.(*ast.Symbol)
	if !ok {
		return false
	}
	sb, ok := b.(*ast.Symbol)
	return ok && sa.Name == sb.Name
}

func intLiteral(n ast.Node) (int64, bool) {
	v, ok := asValue(n)
	if !ok || v.Kind != ast.ValInt {
		return 0, false
	}
	return v.Int, true
}
