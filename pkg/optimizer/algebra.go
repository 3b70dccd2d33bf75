package optimizer

import (
	"math"
	"strings"

	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
)

func (o *Optimizer) rewriteUnary(v *ast.Unary, e *env) (ast.Node, bool, error) {
	item, changed, err := o.step(v.Item, e)
	if err != nil {
		return nil, false, err
	}

	// Double negation: -(-x) => x.
	if v.Op == ast.OpNeg {
		if inner, ok := item.(*ast.Unary); ok && inner.Op == ast.OpNeg {
			return inner.Item, true, nil
		}
	}

	if lit, ok := asValue(item); ok {
		folded, err := foldUnary(v.Op, lit)
		if err != nil {
			return nil, false, err
		}
		if folded != nil {
			return folded, true, nil
		}
	}

	if changed {
		nn := *v
		nn.Item = item
		return &nn, true, nil
	}
	return v, false, nil
}

func foldUnary(op ast.UnaryOp, v *ast.Value) (*ast.Value, error) {
	switch op {
	case ast.OpPos:
		return v, nil
	case ast.OpNot:
		return ast.NewBool(!v.IsTruthy()), nil
	case ast.OpNeg:
		switch v.Kind {
		case ast.ValInt:
			return ast.NewInt(-v.Int), nil
		case ast.ValFloat:
			return ast.NewFloat(-v.Flt), nil
		}
	}
	return nil, nil
}

func (o *Optimizer) rewriteBinary(v *ast.Binary, e *env) (ast.Node, bool, error) {
	left, c1, err := o.step(v.Left, e)
	if err != nil {
		return nil, false, err
	}
	right, c2, err := o.step(v.Right, e)
	if err != nil {
		return nil, false, err
	}
	changed := c1 || c2

	// Boolean short-circuit.
	if v.Op == ast.OpAnd || v.Op == ast.OpOr {
		if lit, ok := asValue(left); ok && isPure(right) {
			truthy := lit.IsTruthy()
			if v.Op == ast.OpAnd {
				if !truthy {
					return ast.NewBool(false), true, nil
				}
				return right, true, nil
			}
			if truthy {
				return ast.NewBool(true), true, nil
			}
			return right, true, nil
		}
	}

	if node, ok, err := foldBinaryValues(v.Op, left, right); err != nil {
		return nil, false, err
	} else if ok {
		return node, true, nil
	}

	if node, ok := algebraicIdentity(v.Op, left, right); ok {
		return node, true, nil
	}

	if changed {
		nn := *v
		nn.Left, nn.Right = left, right
		return &nn, true, nil
	}
	return v, false, nil
}

// algebraicIdentity implements spec.md §4.4's algebraic-identity cascade:
// 0+x=x, x+0=x, 0-x=-x, 0*x=0, 1*x=x, x/1=x, x-x=0, x/x=1 (the last two
// only when both sides are the same pure symbol, to avoid duplicating a
// side-effecting evaluation), plus (-x)(-y)=xy and shift-by-constant
// rewritten as multiply/divide by a power of two.
func algebraicIdentity(op ast.BinOp, l, r ast.Node) (ast.Node, bool) {
	lv, lok := asValue(l)
	rv, rok := asValue(r)

	switch op {
	case ast.OpAdd:
		if lok && lv.Kind != ast.ValString && isZero(lv) {
			return r, true
		}
		if rok && rv.Kind != ast.ValString && isZero(rv) {
			return l, true
		}
	case ast.OpSub:
		if lok && isZero(lv) {
			return &ast.Unary{Op: ast.OpNeg, Item: r}, true
		}
		if rok && isZero(rv) {
			return l, true
		}
		if sameSymbol(l, r) {
			return ast.NewInt(0), true
		}
	case ast.OpMul:
		if lok && isZero(lv) && isPure(r) {
			return zeroLike(lv), true
		}
		if rok && isZero(rv) && isPure(l) {
			return zeroLike(rv), true
		}
		if lok && isOne(lv) {
			return r, true
		}
		if rok && isOne(rv) {
			return l, true
		}
		if ln, lneg := asNeg(l); lneg {
			if rn, rneg := asNeg(r); rneg {
				return &ast.Binary{Op: ast.OpMul, Left: ln, Right: rn}, true
			}
		}
	case ast.OpDiv:
		if rok && isOne(rv) {
			return l, true
		}
		if sameSymbol(l, r) && isPure(l) {
			return ast.NewInt(1), true
		}
	case ast.OpShl:
		if k, ok := intLiteral(r); ok && k >= 0 && k < 62 {
			return &ast.Binary{Op: ast.OpMul, Left: l, Right: ast.NewInt(1 << uint(k))}, true
		}
	case ast.OpShr:
		if k, ok := intLiteral(r); ok && k >= 0 && k < 62 {
			return &ast.Binary{Op: ast.OpMul, Left: l, Right: ast.NewFloat(pow2(-int(k)))}, true
		}
	}
	return nil, false
}

func pow2(k int) float64 {
	v := 1.0
	if k >= 0 {
		for i := 0; i < k; i++ {
			v *= 2
		}
		return v
	}
	for i := 0; i < -k; i++ {
		v /= 2
	}
	return v
}

func asNeg(n ast.Node) (ast.Node, bool) {
	u, ok := n.(*ast.Unary)
	if ok && u.Op == ast.OpNeg {
		return u.Item, true
	}
	return nil, false
}

func isZero(v *ast.Value) bool {
	return (v.Kind == ast.ValInt && v.Int == 0) || (v.Kind == ast.ValFloat && v.Flt == 0)
}

func isOne(v *ast.Value) bool {
	return (v.Kind == ast.ValInt && v.Int == 1) || (v.Kind == ast.ValFloat && v.Flt == 1)
}

func zeroLike(v *ast.Value) ast.Node {
	if v.Kind == ast.ValFloat {
		return ast.NewFloat(0)
	}
	return ast.NewInt(0)
}

// foldBinaryValues computes the Go-equivalent of op applied to two literal
// Values (spec.md §4.4 "Constant folding"), plus the string/vector-specific
// folds (str+str, vec+vec, vec*n, str*n).
func foldBinaryValues(op ast.BinOp, l, r ast.Node) (ast.Node, bool, error) {
	if lv, ok := asValue(l); ok {
		if rv, ok := asValue(r); ok {
			return foldScalar(op, lv, rv)
		}
	}
	// str*n / vec*n (or the commuted n*str / n*vec).
	if op == ast.OpMul {
		if node, ok := foldRepeat(l, r); ok {
			return node, true, nil
		}
		if node, ok := foldRepeat(r, l); ok {
			return node, true, nil
		}
	}
	if op == ast.OpAdd {
		if lItems, ok := asVector(l); ok {
			if rItems, ok := asVector(r); ok {
				return ast.MakeVector(append(append([]ast.Node{}, lItems...), rItems...)), true, nil
			}
		}
	}
	return nil, false, nil
}

func foldRepeat(seqNode, countNode ast.Node) (ast.Node, bool) {
	n, ok := intLiteral(countNode)
	if !ok || n < 0 {
		return nil, false
	}
	if sv, ok := asValue(seqNode); ok && sv.Kind == ast.ValString {
		return ast.NewString(strings.Repeat(sv.Str, int(n))), true
	}
	if items, ok := asVector(seqNode); ok {
		out := make([]ast.Node, 0, len(items)*int(n))
		for i := int64(0); i < n; i++ {
			out = append(out, items...)
		}
		return ast.MakeVector(out), true
	}
	return nil, false
}

func foldScalar(op ast.BinOp, l, r *ast.Value) (ast.Node, bool, error) {
	if l.Kind == ast.ValString || r.Kind == ast.ValString {
		if op == ast.OpAdd && l.Kind == ast.ValString && r.Kind == ast.ValString {
			return ast.NewString(l.Str + r.Str), true, nil
		}
		return nil, false, nil
	}
	if isFloaty(l) || isFloaty(r) {
		lf, rf := asFloat(l), asFloat(r)
		switch op {
		case ast.OpAdd:
			return ast.NewFloat(lf + rf), true, nil
		case ast.OpSub:
			return ast.NewFloat(lf - rf), true, nil
		case ast.OpMul:
			return ast.NewFloat(lf * rf), true, nil
		case ast.OpDiv:
			if rf == 0 {
				return nil, false, nil
			}
			return ast.NewFloat(lf / rf), true, nil
		case ast.OpPow:
			return ast.NewFloat(math.Pow(lf, rf)), true, nil
		case ast.OpAnd:
			return ast.NewBool(l.IsTruthy() && r.IsTruthy()), true, nil
		case ast.OpOr:
			return ast.NewBool(l.IsTruthy() || r.IsTruthy()), true, nil
		}
		return nil, false, nil
	}
	li, ri := asInt(l), asInt(r)
	switch op {
	case ast.OpAdd:
		return ast.NewInt(li + ri), true, nil
	case ast.OpSub:
		return ast.NewInt(li - ri), true, nil
	case ast.OpMul:
		return ast.NewInt(li * ri), true, nil
	case ast.OpDiv:
		if ri == 0 {
			return nil, false, nil
		}
		if li%ri == 0 {
			return ast.NewInt(li / ri), true, nil
		}
		return ast.NewFloat(float64(li) / float64(ri)), true, nil
	case ast.OpFloorDiv:
		if ri == 0 {
			return nil, false, nil
		}
		return ast.NewInt(floorDiv(li, ri)), true, nil
	case ast.OpMod:
		if ri == 0 {
			return nil, false, nil
		}
		return ast.NewInt(((li % ri) + ri) % ri), true, nil
	case ast.OpPow:
		if ri >= 0 {
			return ast.NewInt(intPow(li, ri)), true, nil
		}
		return ast.NewFloat(math.Pow(float64(li), float64(ri))), true, nil
	case ast.OpShl:
		if ri < 0 || ri > 62 {
			return nil, false, ferr.New(ferr.TypeError, "shift amount out of range")
		}
		return ast.NewInt(li << uint(ri)), true, nil
	case ast.OpShr:
		if ri < 0 || ri > 62 {
			return nil, false, ferr.New(ferr.TypeError, "shift amount out of range")
		}
		return ast.NewInt(li >> uint(ri)), true, nil
	case ast.OpBitAnd:
		return ast.NewInt(li & ri), true, nil
	case ast.OpBitOr:
		return ast.NewInt(li | ri), true, nil
	case ast.OpBitXor:
		return ast.NewInt(li ^ ri), true, nil
	case ast.OpAnd:
		return ast.NewBool(l.IsTruthy() && r.IsTruthy()), true, nil
	case ast.OpOr:
		return ast.NewBool(l.IsTruthy() || r.IsTruthy()), true, nil
	}
	return nil, false, nil
}

func isFloaty(v *ast.Value) bool { return v.Kind == ast.ValFloat }

func asFloat(v *ast.Value) float64 {
	if v.Kind == ast.ValFloat {
		return v.Flt
	}
	if v.Kind == ast.ValBool {
		if v.Bool {
			return 1
		}
		return 0
	}
	return float64(v.Int)
}

func asInt(v *ast.Value) int64 {
	if v.Kind == ast.ValBool {
		if v.Bool {
			return 1
		}
		return 0
	}
	return v.Int
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func intPow(base, exp int64) int64 {
	result := int64(1)
	for i := int64(0); i < exp; i++ {
		result *= base
	}
	return result
}

