// Package optimizer implements the fixed-point algebraic simplifier and
// partial evaluator of spec.md §4.4: repeatedly rewriting the AST with
// algebraic, control-flow, and collection-specific rules until a pass
// produces no further change. Grounded node-by-node on
// original_source/pyppl/ppl_optimizers.py.
package optimizer

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/dist"
	"foppl.dev/compiler/pkg/ferr"
)

// maxFixedPointIterations bounds the outer fixed-point loop; a well-formed
// program converges in a handful of passes, but a cap keeps a pathological
// or buggy rewrite from looping the compiler forever.
const maxFixedPointIterations = 64

// maxUnroll is the bounded unroll cap spec.md §4.4 "Loops" describes for
// constant-only While loops.
const maxUnroll = 100

// Optimizer threads the binding environment (for Let/Call inlining), the
// set of names protected against substitution because some enclosing scope
// mutates them, and a nameGen used to re-uniquify names duplicated by
// function-call inlining.
type Optimizer struct {
	loader    dist.DataLoader
	nameGen   int
	unrollCap int
	functions map[string]*ast.Function
}

// New builds an Optimizer. loader may be nil (spec.md §6: absent loader
// leaves data literals inline).
func New(loader dist.DataLoader) *Optimizer {
	return &Optimizer{loader: loader, unrollCap: maxUnroll, functions: map[string]*ast.Function{}}
}

// collectFunctions populates o.functions from every global Def binding a
// Function literal, so Call sites can be inlined regardless of where in
// the fixed-point loop they are rewritten.
func (o *Optimizer) collectFunctions(root ast.Node) {
	ast.Walk(root, func(n ast.Node) {
		def, ok := n.(*ast.Def)
		if !ok {
			return
		}
		if fn, ok := def.Value.(*ast.Function); ok {
			o.functions[def.Name] = fn
		}
	})
}

// Run simplifies root to a fixed point, returning the simplified tree.
// "Idempotence" (spec.md §8 property 7) means a second Run on the output
// of the first returns it unchanged (modulo re-numbered inlining temps).
func (o *Optimizer) Run(root ast.Node) (ast.Node, error) {
	o.collectFunctions(root)
	cur := root
	for i := 0; i < maxFixedPointIterations; i++ {
		next, changed, err := o.step(cur, newEnv(nil))
		if err != nil {
			return nil, err
		}
		if !changed {
			return next, nil
		}
		cur = next
	}
	return cur, nil
}

// env is the substitution environment threaded through the rewrite.
// bindings holds embeddable replacement candidates introduced by Let
// inlining; protected marks names that must never be substituted into:
// the target of a Let that is kept, and a Function's parameters and
// vararg (spec.md §4.4 "Protection discipline").
type env struct {
	parent    *env
	bindings  map[string]ast.Node
	protected map[string]bool
}

func newEnv(parent *env) *env {
	return &env{parent: parent, bindings: map[string]ast.Node{}, protected: map[string]bool{}}
}

func (e *env) lookup(name string) (ast.Node, bool) {
	for s := e; s != nil; s = s.parent {
		if n, ok := s.bindings[name]; ok {
			return n, true
		}
		if s.protected[name] {
			return nil, false
		}
	}
	return nil, false
}

func (e *env) isProtected(name string) bool {
	for s := e; s != nil; s = s.parent {
		if s.protected[name] {
			return true
		}
		if _, ok := s.bindings[name]; ok {
			return false
		}
	}
	return false
}

// step rewrites n once, post-order (children first, then n's own rules),
// reporting whether anything changed anywhere in the subtree.
func (o *Optimizer) step(n ast.Node, e *env) (ast.Node, bool, error) {
	if n == nil {
		return nil, false, nil
	}
	switch v := n.(type) {
	case *ast.Value, *ast.ValueVector, *ast.Break:
		return n, false, nil

	case *ast.Symbol:
		if bound, ok := e.lookup(v.Name); ok {
			return bound, true, nil
		}
		return n, false, nil

	case *ast.Vector:
		return o.rewriteVector(v, e)

	case *ast.Dict:
		return o.rewriteDict(v, e)

	case *ast.Binary:
		return o.rewriteBinary(v, e)

	case *ast.Unary:
		return o.rewriteUnary(v, e)

	case *ast.Compare:
		return o.rewriteCompare(v, e)

	case *ast.Attribute:
		base, changed, err := o.step(v.Base, e)
		if err != nil {
			return nil, false, err
		}
		nn := *v
		nn.Base = base
		return &nn, changed, nil

	case *ast.Subscript:
		return o.rewriteSubscript(v, e)

	case *ast.Slice:
		return o.rewriteSlice(v, e)

	case *ast.Call:
		return o.rewriteCall(v, e)

	case *ast.If:
		return o.rewriteIf(v, e)

	case *ast.For:
		return o.rewriteFor(v, e)

	case *ast.ListFor:
		return o.rewriteListFor(v, e)

	case *ast.While:
		return o.rewriteWhile(v, e)

	case *ast.Let:
		return o.rewriteLet(v, e)

	case *ast.Def:
		val, changed, err := o.step(v.Value, e)
		if err != nil {
			return nil, false, err
		}
		nn := *v
		nn.Value = val
		return &nn, changed, nil

	case *ast.Function:
		return o.rewriteFunction(v, e)

	case *ast.Return:
		if v.Value == nil {
			return n, false, nil
		}
		val, changed, err := o.step(v.Value, e)
		if err != nil {
			return nil, false, err
		}
		nn := *v
		nn.Value = val
		return &nn, changed, nil

	case *ast.Import:
		return n, false, nil

	case *ast.Sample:
		dist_, changed, err := o.step(v.Dist, e)
		if err != nil {
			return nil, false, err
		}
		nn := *v
		nn.Dist = dist_
		return &nn, changed, nil

	case *ast.Observe:
		dist_, c1, err := o.step(v.Dist, e)
		if err != nil {
			return nil, false, err
		}
		val, c2, err := o.step(v.Value, e)
		if err != nil {
			return nil, false, err
		}
		nn := *v
		nn.Dist, nn.Value = dist_, val
		return &nn, c1 || c2, nil

	case *ast.Body:
		return o.rewriteBody(v, e)

	default:
		return nil, false, ferr.New(ferr.SyntaxError, "optimizer: unhandled node tag %v", n.Tag())
	}
}

func (o *Optimizer) freshSuffix() int {
	o.nameGen++
	return o.nameGen
}
