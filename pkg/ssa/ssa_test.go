package ssa_test

import (
	"testing"

	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ssa"
)

func flatten(n ast.Node) []ast.Node {
	if b, ok := n.(*ast.Body); ok {
		return b.Items
	}
	return []ast.Node{n}
}

func TestPhiInsertionAfterIf(t *testing.T) {
	// x = 1; if cond { x = 2 } else { x = 3 }; x
	program := ast.MakeBody(
		&ast.Def{Name: "x", Value: ast.NewInt(1)},
		&ast.If{
			Test:     &ast.Symbol{Name: "cond"},
			IfNode:   &ast.Def{Name: "x", Value: ast.NewInt(2)},
			ElseNode: &ast.Def{Name: "x", Value: ast.NewInt(3)},
		},
		&ast.Symbol{Name: "x"},
	)
	out, err := ssa.Run(program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := flatten(out)
	if len(items) == 0 {
		t.Fatalf("expected a non-empty body, got %#v", out)
	}

	last, ok := items[len(items)-1].(*ast.Symbol)
	if !ok {
		t.Fatalf("expected the trailing reference to x to remain a Symbol, got %#v", items[len(items)-1])
	}
	if last.Name == "x" {
		t.Fatalf("expected the trailing x to be renamed to a fresh SSA instance, got unrenamed %q", last.Name)
	}

	var foundPhi bool
	for _, it := range items {
		def, ok := it.(*ast.Def)
		if !ok || def.Name != last.Name {
			continue
		}
		iff, ok := def.Value.(*ast.If)
		if !ok {
			continue
		}
		if _, ok := iff.IfNode.(*ast.Symbol); !ok {
			continue
		}
		if _, ok := iff.ElseNode.(*ast.Symbol); !ok {
			continue
		}
		foundPhi = true
	}
	if !foundPhi {
		t.Fatalf("expected a phi-Def binding %q to If(cond, x-instance, x-instance), got %#v", last.Name, items)
	}
}

func TestIfValueTestCollapses(t *testing.T) {
	program := &ast.If{Test: ast.NewBool(true), IfNode: ast.NewInt(1), ElseNode: ast.NewInt(2)}
	out, err := ssa.Run(program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := out.(*ast.Value)
	if !ok || v.Kind != ast.ValInt || v.Int != 1 {
		t.Fatalf("expected the statically-true test to collapse to 1, got %#v", out)
	}
}

func TestSampleIsHoistedToATemporary(t *testing.T) {
	// sample(Normal(0,1)) + 1
	program := &ast.Binary{
		Op:   ast.OpAdd,
		Left: &ast.Sample{Dist: &ast.Call{Function: &ast.Symbol{Name: "Normal"}, Args: []ast.Node{ast.NewInt(0), ast.NewInt(1)}}},
		Right: ast.NewInt(1),
	}
	out, err := ssa.Run(program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := flatten(out)
	if len(items) < 2 {
		t.Fatalf("expected the sample to be hoisted into its own Def, got %#v", out)
	}
	def, ok := items[0].(*ast.Def)
	if !ok {
		t.Fatalf("expected the first statement to be a Def, got %#v", items[0])
	}
	if _, ok := def.Value.(*ast.Sample); !ok {
		t.Fatalf("expected the hoisted Def to bind a Sample, got %#v", def.Value)
	}
	last := items[len(items)-1]
	bin, ok := last.(*ast.Binary)
	if !ok || bin.Op != ast.OpAdd {
		t.Fatalf("expected the trailing statement to still be the +1 binary, got %#v", last)
	}
	sym, ok := bin.Left.(*ast.Symbol)
	if !ok || sym.Name != def.Name {
		t.Fatalf("expected the binary's left operand to reference the hoisted temporary %q, got %#v", def.Name, bin.Left)
	}
}

func TestConditionExpansionLiftsIfOverObserve(t *testing.T) {
	dist := func(mean int64) ast.Node {
		return &ast.Call{Function: &ast.Symbol{Name: "Normal"}, Args: []ast.Node{ast.NewInt(mean), ast.NewInt(1)}}
	}
	program := &ast.Observe{
		Dist:  &ast.If{Test: &ast.Symbol{Name: "cond"}, IfNode: dist(0), ElseNode: dist(1)},
		Value: ast.NewFloat(0.0),
	}
	out, err := ssa.Run(program)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	iff, ok := out.(*ast.If)
	if !ok {
		t.Fatalf("expected the If to be lifted above the Observe, got %#v", out)
	}
	if _, ok := iff.IfNode.(*ast.Observe); !ok {
		t.Fatalf("expected the if-branch to be an Observe, got %#v", iff.IfNode)
	}
	if _, ok := iff.ElseNode.(*ast.Observe); !ok {
		t.Fatalf("expected the else-branch to be an Observe, got %#v", iff.ElseNode)
	}
}
