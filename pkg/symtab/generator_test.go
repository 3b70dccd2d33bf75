package symtab_test

import (
	"testing"

	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/symtab"
)

// TestRenamingIsABijection mirrors spec.md §8 property 2: after the
// symbol-table pass, no two distinct bindings share a mangled name, even
// when the surface program shadows the same name twice.
func TestRenamingIsABijection(t *testing.T) {
	// (let [x 1] (let [x 2] x))
	inner := &ast.Let{Target: "x", Source: ast.NewInt(2), Body: &ast.Symbol{Name: "x"}}
	outer := &ast.Let{Target: "x", Source: ast.NewInt(1), Body: inner}

	out, table, err := symtab.Generate(outer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rewritten, ok := out.(*ast.Let)
	if !ok {
		t.Fatalf("expected *ast.Let, got %#v", out)
	}
	innerRewritten, ok := rewritten.Body.(*ast.Let)
	if !ok {
		t.Fatalf("expected nested *ast.Let, got %#v", rewritten.Body)
	}

	if rewritten.Target == innerRewritten.Target {
		t.Fatalf("shadowed bindings must mangle to distinct names, both got %q", rewritten.Target)
	}

	innerSymbolRef, ok := innerRewritten.Body.(*ast.Symbol)
	if !ok {
		t.Fatalf("expected the body reference to be a *ast.Symbol, got %#v", innerRewritten.Body)
	}
	if innerSymbolRef.Name != innerRewritten.Target {
		t.Fatalf("reference %q should point at the innermost binding %q", innerSymbolRef.Name, innerRewritten.Target)
	}

	seen := map[string]bool{}
	for _, sym := range table.All() {
		if seen[sym.MangledName] {
			t.Fatalf("mangled name %q reused across two distinct Symbol records", sym.MangledName)
		}
		seen[sym.MangledName] = true
	}
}

// TestFreeVariablesAreRecordedNotRenamed ensures a reference to a name
// never bound anywhere in the program passes through unchanged and is
// recorded in Table.Free, rather than failing or being silently dropped.
func TestFreeVariablesAreRecordedNotRenamed(t *testing.T) {
	ref := &ast.Symbol{Name: "Normal"}
	out, table, err := symtab.Generate(ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sym, ok := out.(*ast.Symbol)
	if !ok || sym.Name != "Normal" {
		t.Fatalf("expected the free reference to pass through unchanged, got %#v", out)
	}
	if !table.Free["Normal"] {
		t.Fatal("expected 'Normal' to be recorded as a free variable")
	}
}

// TestGlobalDefKeepsSurfaceName mirrors the generator's module-level
// binding convention: a global Def is not mangled, unlike every lexically
// scoped binding.
func TestGlobalDefKeepsSurfaceName(t *testing.T) {
	def := &ast.Def{Name: "main", Value: ast.NewInt(1), Global: true}
	out, _, err := symtab.Generate(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rewritten, ok := out.(*ast.Def)
	if !ok {
		t.Fatalf("expected *ast.Def, got %#v", out)
	}
	if rewritten.Name != "main" {
		t.Fatalf("expected global Def to keep its surface name, got %q", rewritten.Name)
	}
}
