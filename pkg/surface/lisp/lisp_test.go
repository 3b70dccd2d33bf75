package lisp_test

import (
	"testing"

	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/surface/imperative"
	"foppl.dev/compiler/pkg/surface/lisp"
)

func items(n ast.Node) []ast.Node {
	if b, ok := n.(*ast.Body); ok {
		return b.Items
	}
	return []ast.Node{n}
}

func TestArithmeticFormsFoldLeftAssociative(t *testing.T) {
	n, err := lisp.Parse("(+ 1 2 3)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// (+ 1 2 3) => ((1 + 2) + 3)
	outer, ok := n.(*ast.Binary)
	if !ok || outer.Op != ast.OpAdd {
		t.Fatalf("expected a top-level '+', got %#v", n)
	}
	inner, ok := outer.Left.(*ast.Binary)
	if !ok || inner.Op != ast.OpAdd {
		t.Fatalf("expected '+' to nest left-associatively, got %#v", outer.Left)
	}
}

func TestZeroArityArithmeticYieldsIdentity(t *testing.T) {
	n, err := lisp.Parse("(+)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := n.(*ast.Value)
	if !ok || v.Kind != ast.ValInt || v.Int != 0 {
		t.Fatalf("expected the additive identity 0, got %#v", n)
	}

	n, err = lisp.Parse("(*)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok = n.(*ast.Value)
	if !ok || v.Kind != ast.ValInt || v.Int != 1 {
		t.Fatalf("expected the multiplicative identity 1, got %#v", n)
	}
}

func TestLetDesugarsMultiBindingRightToLeft(t *testing.T) {
	n, err := lisp.Parse("(let [a 1 b 2] b)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outer, ok := n.(*ast.Let)
	if !ok || outer.Target != "a" {
		t.Fatalf("expected outer binding 'a', got %#v", n)
	}
	inner, ok := outer.Body.(*ast.Let)
	if !ok || inner.Target != "b" {
		t.Fatalf("expected inner binding 'b', got %#v", outer.Body)
	}
}

func TestSampleAndObserveForms(t *testing.T) {
	n, err := lisp.Parse("(sample (Normal 0 1))")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := n.(*ast.Sample); !ok {
		t.Fatalf("expected *ast.Sample, got %#v", n)
	}

	n, err = lisp.Parse("(observe (Normal 0 1) 2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := n.(*ast.Observe); !ok {
		t.Fatalf("expected *ast.Observe, got %#v", n)
	}
}

func TestIfAndIfNot(t *testing.T) {
	n, err := lisp.Parse("(if-not c a b)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ifNode, ok := n.(*ast.If)
	if !ok {
		t.Fatalf("expected *ast.If, got %#v", n)
	}
	// if-not negates the test rather than swapping the branches.
	test, ok := ifNode.Test.(*ast.Unary)
	if !ok || test.Op != ast.OpNot {
		t.Fatalf("expected if-not to wrap the test in a Not, got %#v", ifNode.Test)
	}
	then, ok := ifNode.IfNode.(*ast.Symbol)
	if !ok || then.Name != "a" {
		t.Fatalf("expected the then-branch to stay 'a', got %#v", ifNode.IfNode)
	}
	elseN, ok := ifNode.ElseNode.(*ast.Symbol)
	if !ok || elseN.Name != "b" {
		t.Fatalf("expected the else-branch to stay 'b', got %#v", ifNode.ElseNode)
	}
}

func TestUnimplementedLoopFormFails(t *testing.T) {
	_, err := lisp.Parse("(loop [x 0] x)")
	if err == nil {
		t.Fatal("expected 'loop' to fail with SyntaxError (spec.md §9: unimplemented hook)")
	}
}

func TestUnmatchedBracketFails(t *testing.T) {
	_, err := lisp.Parse("(+ 1 2")
	if err == nil {
		t.Fatal("expected an unmatched bracket to fail")
	}
}

func TestThreadingMacrosDesugarToNestedCalls(t *testing.T) {
	n, err := lisp.Parse("(-> x (f 1) (g 2))")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outer, ok := n.(*ast.Call)
	if !ok {
		t.Fatalf("expected *ast.Call, got %#v", n)
	}
	outerFn, ok := outer.Function.(*ast.Symbol)
	if !ok || outerFn.Name != "g" {
		t.Fatalf("expected the outermost call to be 'g', got %#v", outer.Function)
	}
	if len(outer.Args) != 2 {
		t.Fatalf("expected 'g' to receive the threaded value plus its own arg, got %d args", len(outer.Args))
	}
	inner, ok := outer.Args[0].(*ast.Call)
	if !ok {
		t.Fatalf("expected the threaded value to be the nested 'f' call, got %#v", outer.Args[0])
	}
	innerFn, ok := inner.Function.(*ast.Symbol)
	if !ok || innerFn.Name != "f" {
		t.Fatalf("expected the inner call to be 'f', got %#v", inner.Function)
	}
}

// TestRoundTripViaPrint mirrors spec.md §8 property 1 (Parse(Print(AST)) ==
// AST). ast.Print renders the single expression-oriented dialect described
// in pkg/ast/print.go's doc comment -- the imperative surface's grammar --
// so a Lisp-parsed AST is round-tripped by re-parsing its printed form with
// the imperative parser and checking the two print outputs agree.
func TestRoundTripViaPrint(t *testing.T) {
	source := "(if (= 1 1) (+ 1 2) (* 3 4))"
	n, err := lisp.Parse(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	printed := ast.Print(n)

	reparsed, err := imperative.Parse(printed + "\n")
	if err != nil {
		t.Fatalf("unexpected error re-parsing printed form %q: %v", printed, err)
	}
	stmts := items(reparsed)
	if len(stmts) != 1 {
		t.Fatalf("expected a single top-level expression, got %d", len(stmts))
	}
	if got := ast.Print(stmts[0]); got != printed {
		t.Fatalf("round-trip mismatch:\n first print:  %q\n second print: %q", printed, got)
	}
}
