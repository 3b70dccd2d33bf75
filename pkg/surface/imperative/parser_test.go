package imperative_test

import (
	"testing"

	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/surface/imperative"
)

func body(n ast.Node) []ast.Node {
	if b, ok := n.(*ast.Body); ok {
		return b.Items
	}
	return []ast.Node{n}
}

func TestParseAssignmentAndArithmetic(t *testing.T) {
	n, err := imperative.Parse("x = 1 + 2 * 3\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmts := body(n)
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	def, ok := stmts[0].(*ast.Def)
	if !ok || def.Name != "x" {
		t.Fatalf("expected Def(x), got %#v", stmts[0])
	}
	bin, ok := def.Value.(*ast.Binary)
	if !ok || bin.Op != ast.OpAdd {
		t.Fatalf("expected top-level '+', got %#v", def.Value)
	}
	rhs, ok := bin.Right.(*ast.Binary)
	if !ok || rhs.Op != ast.OpMul {
		t.Fatalf("expected '*' to bind tighter than '+', got %#v", bin.Right)
	}
}

func TestParseIfElifElse(t *testing.T) {
	src := `
if x > 0:
{
	y = 1
} elif x < 0:
{
	y = -1
} else:
{
	y = 0
}
`
	n, err := imperative.Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmts := body(n)
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	top, ok := stmts[0].(*ast.If)
	if !ok {
		t.Fatalf("expected If, got %#v", stmts[0])
	}
	if !top.HasElse() {
		t.Fatalf("expected elif to populate the else branch")
	}
	if _, ok := top.ElseNode.(*ast.If); !ok {
		t.Fatalf("expected elif to desugar into a nested If, got %#v", top.ElseNode)
	}
}

func TestParseForLoopAndSample(t *testing.T) {
	src := `
for i in items:
{
	y = sample(normal(0, 1))
	observe(normal(y, 1), 2)
}
`
	n, err := imperative.Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmts := body(n)
	forNode, ok := stmts[0].(*ast.For)
	if !ok || len(forNode.Targets) != 1 || forNode.Targets[0] != "i" {
		t.Fatalf("expected For(i), got %#v", stmts[0])
	}
	inner := body(forNode.Body)
	def, ok := inner[0].(*ast.Def)
	if !ok {
		t.Fatalf("expected Def for sample assignment, got %#v", inner[0])
	}
	if _, ok := def.Value.(*ast.Sample); !ok {
		t.Fatalf("expected sample(...) to elaborate to *ast.Sample, got %#v", def.Value)
	}
	if _, ok := inner[1].(*ast.Observe); !ok {
		t.Fatalf("expected observe(...) to elaborate to *ast.Observe, got %#v", inner[1])
	}
}

func TestParseListComprehension(t *testing.T) {
	n, err := imperative.Parse("xs = [i * 2 for i in ys if i > 0]\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := body(n)[0].(*ast.Def)
	lf, ok := def.Value.(*ast.ListFor)
	if !ok {
		t.Fatalf("expected ListFor, got %#v", def.Value)
	}
	if lf.Target != "i" || lf.Filter == nil {
		t.Fatalf("expected target 'i' with a filter clause, got %#v", lf)
	}
}

func TestParseSubscriptAndSlice(t *testing.T) {
	n, err := imperative.Parse("a = xs[0]\nb = xs[1:3]\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmts := body(n)
	if _, ok := stmts[0].(*ast.Def).Value.(*ast.Subscript); !ok {
		t.Fatalf("expected Subscript, got %#v", stmts[0].(*ast.Def).Value)
	}
	if _, ok := stmts[1].(*ast.Def).Value.(*ast.Slice); !ok {
		t.Fatalf("expected Slice, got %#v", stmts[1].(*ast.Def).Value)
	}
}

func TestParseUnmatchedBlockFails(t *testing.T) {
	_, err := imperative.Parse("if x > 0:\n{\n  y = 1\n")
	if err == nil {
		t.Fatalf("expected an error for an unterminated block")
	}
}

func TestParseFunctionDefWithDefaultArg(t *testing.T) {
	n, err := imperative.Parse("def f(a, b = 2): { return a + b }\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := body(n)[0].(*ast.Def)
	fn, ok := def.Value.(*ast.Function)
	if !ok || len(fn.Params) != 2 {
		t.Fatalf("expected Function with 2 params, got %#v", def.Value)
	}
	if fn.Params[1].Default == nil {
		t.Fatalf("expected second parameter to carry a default value")
	}
}
