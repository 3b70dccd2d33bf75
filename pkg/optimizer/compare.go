package optimizer

import "foppl.dev/compiler/pkg/ast"

// rewriteCompare implements spec.md §4.4 "Comparison normalization":
// -x rel -y => y rel x; unary-neg pulled into constants; an additive
// constant moved to the right-hand side (e rel 0); chained a rel b rel c
// evaluated when every operand is constant.
func (o *Optimizer) rewriteCompare(v *ast.Compare, e *env) (ast.Node, bool, error) {
	left, c1, err := o.step(v.Left, e)
	if err != nil {
		return nil, false, err
	}
	right, c2, err := o.step(v.Right, e)
	if err != nil {
		return nil, false, err
	}
	changed := c1 || c2

	var secondRight ast.Node
	if v.SecondRight != nil {
		secondRight, c2, err = o.step(v.SecondRight, e)
		if err != nil {
			return nil, false, err
		}
		changed = changed || c2
	}

	// -x rel -y => y rel x.
	if ln, lneg := asNeg(left); lneg && v.SecondRight == nil {
		if rn, rneg := asNeg(right); rneg {
			return &ast.Compare{Left: rn, Op: v.Op, Right: ln}, true, nil
		}
	}

	// e + c rel 0  =>  e rel -c  (constant moved to the right).
	if rv, ok := asValue(right); ok && isZero(rv) && v.SecondRight == nil {
		if bin, ok := left.(*ast.Binary); ok {
			switch bin.Op {
			case ast.OpAdd:
				if cst, ok := asValue(bin.Right); ok {
					return &ast.Compare{Left: bin.Left, Op: v.Op, Right: &ast.Unary{Op: ast.OpNeg, Item: cst}}, true, nil
				}
			case ast.OpSub:
				if cst, ok := asValue(bin.Right); ok {
					return &ast.Compare{Left: bin.Left, Op: v.Op, Right: cst}, true, nil
				}
			}
		}
	}

	// Fully-constant chained/plain comparisons fold outright.
	if lv, ok := asValue(left); ok {
		if rv, ok := asValue(right); ok {
			res := evalCompare(v.Op, lv, rv)
			if v.SecondRight == nil {
				return ast.NewBool(res), true, nil
			}
			if srv, ok := asValue(secondRight); ok {
				return ast.NewBool(res && evalCompare(*v.SecondOp, rv, srv)), true, nil
			}
		}
	}

	if changed {
		nn := *v
		nn.Left, nn.Right, nn.SecondRight = left, right, secondRight
		return &nn, true, nil
	}
	return v, false, nil
}

func evalCompare(op ast.CompareOp, l, r *ast.Value) bool {
	if l.Kind == ast.ValString || r.Kind == ast.ValString {
		switch op {
		case ast.CmpEq:
			return l.Kind == ast.ValString && r.Kind == ast.ValString && l.Str == r.Str
		case ast.CmpNe:
			return !(l.Kind == ast.ValString && r.Kind == ast.ValString && l.Str == r.Str)
		default:
			lf, rf := l.Str, r.Str
			switch op {
			case ast.CmpLt:
				return lf < rf
			case ast.CmpLe:
				return lf <= rf
			case ast.CmpGt:
				return lf > rf
			case ast.CmpGe:
				return lf >= rf
			}
			return false
		}
	}
	lf, rf := asFloat(l), asFloat(r)
	switch op {
	case ast.CmpEq:
		return lf == rf
	case ast.CmpNe:
		return lf != rf
	case ast.CmpLt:
		return lf < rf
	case ast.CmpLe:
		return lf <= rf
	case ast.CmpGt:
		return lf > rf
	case ast.CmpGe:
		return lf >= rf
	default:
		return false
	}
}
