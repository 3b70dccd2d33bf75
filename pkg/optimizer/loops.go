package optimizer

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
)

// rewriteFor unrolls a For over a literal, known-length source: each
// iteration rewrites a copy of the body with the loop variable(s) bound to
// that element in the substitution environment; no Let is emitted, so the
// loop variables do not appear in the result. The unrolled copies are concatenated in
// order. Tuple targets (len(Targets) > 1) destructure each element, which
// must itself be a fixed-length vector.
func (o *Optimizer) rewriteFor(v *ast.For, e *env) (ast.Node, bool, error) {
	source, c1, err := o.step(v.Source, e)
	if err != nil {
		return nil, false, err
	}
	items, ok := asVector(source)
	if !ok {
		body, c2, err := o.step(v.Body, newEnv(e))
		if err != nil {
			return nil, false, err
		}
		if c1 || c2 {
			nn := *v
			nn.Source, nn.Body = source, body
			return &nn, true, nil
		}
		return v, false, nil
	}

	var unrolled []ast.Node
	for _, item := range items {
		bound, err := bindForTargets(v.Targets, item)
		if err != nil {
			return nil, false, err
		}
		iter, _, err := o.step(v.Body, bound.extend(e))
		if err != nil {
			return nil, false, err
		}
		unrolled = append(unrolled, iter)
	}
	return ast.MakeBody(unrolled), true, nil
}

// rewriteListFor unrolls a list comprehension over a literal source into a
// Vector, applying Filter (when present) at unroll time.
func (o *Optimizer) rewriteListFor(v *ast.ListFor, e *env) (ast.Node, bool, error) {
	source, c1, err := o.step(v.Source, e)
	if err != nil {
		return nil, false, err
	}
	items, ok := asVector(source)
	if !ok {
		expr, c2, err := o.step(v.Expr, newEnv(e))
		if err != nil {
			return nil, false, err
		}
		filter, c3, err := o.step(v.Filter, newEnv(e))
		if err != nil {
			return nil, false, err
		}
		if c1 || c2 || c3 {
			nn := *v
			nn.Source, nn.Expr, nn.Filter = source, expr, filter
			return &nn, true, nil
		}
		return v, false, nil
	}

	var out []ast.Node
	for _, item := range items {
		ne := newEnv(e)
		ne.bindings[v.Target] = item
		if v.Filter != nil {
			cond, _, err := o.step(v.Filter, ne)
			if err != nil {
				return nil, false, err
			}
			if cv, ok := asValue(cond); !ok || !cv.IsTruthy() {
				continue
			}
		}
		val, _, err := o.step(v.Expr, ne)
		if err != nil {
			return nil, false, err
		}
		out = append(out, val)
	}
	return ast.MakeVector(out), true, nil
}

// rewriteWhile unrolls a While loop whose test is statically decidable at
// every step, up to maxUnroll iterations. A loop whose test cannot be
// decided is left intact (the optimizer must never silently drop an
// unconvergent loop). A loop whose test stays decidable and truthy for the
// full cap is proven non-terminating as far as the optimizer can tell, and
// cannot be left as a residual While either (graph construction has no
// semantics for one); that case raises ferr.UnrollLimit.
func (o *Optimizer) rewriteWhile(v *ast.While, e *env) (ast.Node, bool, error) {
	ne := newEnv(e)
	var unrolled []ast.Node
	cur := ne
	for i := 0; i < o.unrollCap; i++ {
		test, _, err := o.step(v.Test, cur)
		if err != nil {
			return nil, false, err
		}
		tv, ok := asValue(test)
		if !ok {
			body, c2, err := o.step(v.Body, newEnv(e))
			if err != nil {
				return nil, false, err
			}
			if c2 {
				nn := *v
				nn.Body = body
				return &nn, true, nil
			}
			return v, false, nil
		}
		if !tv.IsTruthy() {
			return ast.MakeBody(unrolled), true, nil
		}
		iter, _, err := o.step(v.Body, cur)
		if err != nil {
			return nil, false, err
		}
		unrolled = append(unrolled, iter)
	}
	return nil, false, ferr.At(ferr.UnrollLimit, v.Pos(),
		"while loop's test is still true after %d unrolled iterations; cannot prove termination", o.unrollCap)
}

// forBindings is a small helper result: the set of env bindings a single
// For iteration introduces.
type forBindings map[string]ast.Node

func (b forBindings) extend(parent *env) *env {
	ne := newEnv(parent)
	for k, v := range b {
		ne.bindings[k] = v
	}
	return ne
}

func bindForTargets(targets []string, item ast.Node) (forBindings, error) {
	b := forBindings{}
	if len(targets) == 1 {
		b[targets[0]] = item
		return b, nil
	}
	parts, ok := asVector(item)
	if !ok || len(parts) != len(targets) {
		return b, nil
	}
	for i, t := range targets {
		b[t] = parts[i]
	}
	return b, nil
}
