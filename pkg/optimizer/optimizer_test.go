package optimizer_test

import (
	"testing"

	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/optimizer"
)

func mustRun(t *testing.T, n ast.Node) ast.Node {
	t.Helper()
	out, err := optimizer.New(nil).Run(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func asFloatValue(t *testing.T, n ast.Node) float64 {
	t.Helper()
	v, ok := n.(*ast.Value)
	if !ok {
		t.Fatalf("expected *ast.Value, got %#v", n)
	}
	switch v.Kind {
	case ast.ValFloat:
		return v.Flt
	case ast.ValInt:
		return float64(v.Int)
	default:
		t.Fatalf("expected numeric value, got %#v", v)
		return 0
	}
}

func TestConstantFoldingArithmetic(t *testing.T) {
	// (1 + 2) * 3 - 4 / 2 => 7
	n := &ast.Binary{
		Op: ast.OpSub,
		Left: &ast.Binary{Op: ast.OpMul,
			Left:  &ast.Binary{Op: ast.OpAdd, Left: ast.NewInt(1), Right: ast.NewInt(2)},
			Right: ast.NewInt(3)},
		Right: &ast.Binary{Op: ast.OpDiv, Left: ast.NewInt(4), Right: ast.NewInt(2)},
	}
	out := mustRun(t, n)
	if got := asFloatValue(t, out); got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}

func TestAlgebraicIdentities(t *testing.T) {
	cases := []struct {
		name string
		n    ast.Node
		want int64
	}{
		{"zero-plus-x", &ast.Binary{Op: ast.OpAdd, Left: ast.NewInt(0), Right: &ast.Symbol{Name: "x"}}, 0},
		{"one-times-x", &ast.Binary{Op: ast.OpMul, Left: ast.NewInt(1), Right: &ast.Symbol{Name: "x"}}, 0},
		{"x-minus-x", &ast.Binary{Op: ast.OpSub, Left: &ast.Symbol{Name: "x"}, Right: &ast.Symbol{Name: "x"}}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := mustRun(t, c.n)
			switch c.name {
			case "zero-plus-x", "one-times-x":
				sym, ok := out.(*ast.Symbol)
				if !ok || sym.Name != "x" {
					t.Fatalf("expected bare symbol x, got %#v", out)
				}
			case "x-minus-x":
				if got := asFloatValue(t, out); got != 0 {
					t.Fatalf("expected 0, got %v", got)
				}
			}
		})
	}
}

func TestIfWithConstantTestCollapses(t *testing.T) {
	n := &ast.If{
		Test:     ast.NewBool(true),
		IfNode:   ast.NewInt(1),
		ElseNode: ast.NewInt(2),
	}
	out := mustRun(t, n)
	if got := asFloatValue(t, out); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
}

func TestIfNotSwapsBranches(t *testing.T) {
	n := &ast.If{
		Test:     &ast.Unary{Op: ast.OpNot, Item: &ast.Symbol{Name: "x"}},
		IfNode:   ast.NewInt(1),
		ElseNode: ast.NewInt(2),
	}
	out, err := optimizer.New(nil).Run(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	iff, ok := out.(*ast.If)
	if !ok {
		t.Fatalf("expected *ast.If, got %#v", out)
	}
	if _, stillNot := iff.Test.(*ast.Unary); stillNot {
		t.Fatalf("expected `not` to be eliminated by the swap, got %#v", iff.Test)
	}
	if got := asFloatValue(t, iff.IfNode); got != 2 {
		t.Fatalf("expected arms swapped (if-branch == 2), got %v", got)
	}
}

func TestLetInlinesSingleUseEmbeddableBinding(t *testing.T) {
	// let y = 1 + 1 in y * 3  =>  6
	n := &ast.Let{
		Target: "y",
		Source: &ast.Binary{Op: ast.OpAdd, Left: ast.NewInt(1), Right: ast.NewInt(1)},
		Body:   &ast.Binary{Op: ast.OpMul, Left: &ast.Symbol{Name: "y"}, Right: ast.NewInt(3)},
	}
	out := mustRun(t, n)
	if got := asFloatValue(t, out); got != 6 {
		t.Fatalf("expected 6, got %v", got)
	}
}

func TestForUnrollsOverLiteralVector(t *testing.T) {
	// for i in [1, 2, 3]: observe(Normal(i, 1), 0.0)
	loop := &ast.For{
		Targets: []string{"i"},
		Source:  &ast.ValueVector{Items: []ast.Node{ast.NewInt(1), ast.NewInt(2), ast.NewInt(3)}},
		Body: &ast.Observe{
			Dist: &ast.Call{
				Function: &ast.Symbol{Name: "Normal"},
				Args:     []ast.Node{&ast.Symbol{Name: "i"}, ast.NewInt(1)},
			},
			Value: ast.NewFloat(0.0),
		},
	}
	out := mustRun(t, loop)
	body, ok := out.(*ast.Body)
	if !ok {
		t.Fatalf("expected unrolled *ast.Body, got %#v", out)
	}
	if len(body.Items) != 3 {
		t.Fatalf("expected 3 unrolled observes, got %d", len(body.Items))
	}
	for idx, item := range body.Items {
		obs, ok := item.(*ast.Observe)
		if !ok {
			t.Fatalf("item %d: expected *ast.Observe, got %#v", idx, item)
		}
		call, ok := obs.Dist.(*ast.Call)
		if !ok {
			t.Fatalf("item %d: expected Normal(..) call, got %#v", idx, obs.Dist)
		}
		if got := asFloatValue(t, call.Args[0]); got != float64(idx+1) {
			t.Fatalf("item %d: expected mean %d, got %v", idx, idx+1, got)
		}
	}
}

func TestSequencePrimitivesFoldOverLiteralVector(t *testing.T) {
	vec := &ast.ValueVector{Items: []ast.Node{ast.NewInt(10), ast.NewInt(20), ast.NewInt(30)}}

	first := mustRun(t, &ast.Call{Function: &ast.Symbol{Name: "first"}, Args: []ast.Node{vec}})
	if got := asFloatValue(t, first); got != 10 {
		t.Fatalf("first: expected 10, got %v", got)
	}

	last := mustRun(t, &ast.Call{Function: &ast.Symbol{Name: "last"}, Args: []ast.Node{vec}})
	if got := asFloatValue(t, last); got != 30 {
		t.Fatalf("last: expected 30, got %v", got)
	}

	nth := mustRun(t, &ast.Call{Function: &ast.Symbol{Name: "nth"}, Args: []ast.Node{vec, ast.NewInt(1)}})
	if got := asFloatValue(t, nth); got != 20 {
		t.Fatalf("nth 1: expected 20, got %v", got)
	}

	rangeCall := mustRun(t, &ast.Call{Function: &ast.Symbol{Name: "range"}, Args: []ast.Node{ast.NewInt(3)}})
	rv, ok := rangeCall.(*ast.ValueVector)
	if !ok || len(rv.Items) != 3 {
		t.Fatalf("range(3): expected a 3-element vector, got %#v", rangeCall)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	n := &ast.Binary{Op: ast.OpAdd, Left: &ast.Binary{Op: ast.OpMul, Left: ast.NewInt(2), Right: ast.NewInt(3)}, Right: ast.NewInt(1)}
	first := mustRun(t, n)
	second, err := optimizer.New(nil).Run(first)
	if err != nil {
		t.Fatalf("unexpected error on second Run: %v", err)
	}
	if asFloatValue(t, first) != asFloatValue(t, second) {
		t.Fatalf("Run is not idempotent: %v != %v", first, second)
	}
}

func TestFunctionCallInlines(t *testing.T) {
	// def double(x) { return x * 2 }
	// double(5)  =>  10
	fn := &ast.Function{
		Name:   "double",
		Params: []ast.Param{{Name: "x"}},
		Body:   &ast.Return{Value: &ast.Binary{Op: ast.OpMul, Left: &ast.Symbol{Name: "x"}, Right: ast.NewInt(2)}},
	}
	program := ast.MakeBody(
		&ast.Def{Name: "double", Value: fn},
		&ast.Call{Function: &ast.Symbol{Name: "double"}, Args: []ast.Node{ast.NewInt(5)}},
	)
	out := mustRun(t, program)
	if got := asFloatValue(t, out); got != 10 {
		t.Fatalf("expected inlined call to fold to 10, got %v (%#v)", got, out)
	}
}

func TestWhileProvenNonTerminatingRaisesUnrollLimit(t *testing.T) {
	// while true: observe(Normal(0,1), 0.0) -- the test is decidable and
	// truthy at every step, so the optimizer can neither unroll past its
	// cap nor leave a residual loop for graph construction to choke on.
	loop := &ast.While{
		Test: ast.NewBool(true),
		Body: &ast.Observe{
			Dist:  &ast.Call{Function: &ast.Symbol{Name: "Normal"}, Args: []ast.Node{ast.NewInt(0), ast.NewInt(1)}},
			Value: ast.NewFloat(0.0),
		},
	}
	_, err := optimizer.New(nil).Run(loop)
	if !ferr.Is(err, ferr.UnrollLimit) {
		t.Fatalf("expected ferr.UnrollLimit, got %v", err)
	}
}

func TestEmbeddingPurityBlocksStochasticSubstitution(t *testing.T) {
	// let y = sample(Normal(0,1)) in y + y must NOT duplicate the sample.
	n := &ast.Let{
		Target: "y",
		Source: &ast.Sample{Dist: &ast.Call{Function: &ast.Symbol{Name: "Normal"}, Args: []ast.Node{ast.NewInt(0), ast.NewInt(1)}}},
		Body:   &ast.Binary{Op: ast.OpAdd, Left: &ast.Symbol{Name: "y"}, Right: &ast.Symbol{Name: "y"}},
	}
	out := mustRun(t, n)
	let, ok := out.(*ast.Let)
	if !ok {
		t.Fatalf("expected the Let to survive (Sample is not embeddable), got %#v", out)
	}
	if _, ok := let.Source.(*ast.Sample); !ok {
		t.Fatalf("expected Source to still be a Sample, got %#v", let.Source)
	}
}
