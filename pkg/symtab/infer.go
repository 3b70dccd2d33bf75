package symtab

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/types"
)

// Infer assigns a types.Type to every node in root, bottom-up, per
// spec.md §4.3: literals give concrete types, operators combine their
// operand types through the lattice, If is the union of its branch types,
// Sample is Numeric, Compare is Boolean, and anything not covered here
// falls back to Any. The table's symbols are updated in lock-step so a
// later lookup by mangled name sees the inferred type too.
func Infer(root ast.Node, table *Table) error {
	_, err := infer(root, table)
	return err
}

func infer(n ast.Node, table *Table) (types.Type, error) {
	if n == nil {
		return types.Any, nil
	}
	// Recurse into children first (bottom-up), regardless of variant.
	for _, c := range ast.Children(n) {
		if _, err := infer(c, table); err != nil {
			return nil, err
		}
	}

	var t types.Type
	switch v := n.(type) {
	case *ast.Value:
		switch v.Kind {
		case ast.ValBool:
			t = types.Boolean
		case ast.ValInt:
			t = types.Integer
		case ast.ValFloat:
			t = types.Float
		case ast.ValString:
			t = types.String
		default:
			t = types.Null
		}

	case *ast.ValueVector:
		item := types.Type(types.Any)
		for i, it := range v.Items {
			if i == 0 {
				item = it.Type()
			} else {
				item = types.Union(item, it.Type())
			}
		}
		t = types.NewList(item, len(v.Items))

	case *ast.Vector:
		item := types.Type(types.Any)
		for i, it := range v.Items {
			if i == 0 {
				item = it.Type()
			} else {
				item = types.Union(item, it.Type())
			}
		}
		t = types.NewList(item, len(v.Items))

	case *ast.Dict:
		item := types.Type(types.Any)
		for i, e := range v.Entries {
			if i == 0 {
				item = e.Value.Type()
			} else {
				item = types.Union(item, e.Value.Type())
			}
		}
		t = &types.Dict{ItemType: item}

	case *ast.Symbol:
		if sym, ok := table.Lookup(v.Name); ok && sym.ValueType != nil {
			t = sym.ValueType
		} else {
			t = types.Any
		}

	case *ast.Binary:
		switch v.Op {
		case ast.OpAnd, ast.OpOr:
			t = types.Union(v.Left.Type(), v.Right.Type())
		default:
			if !isNumericish(v.Left.Type()) || !isNumericish(v.Right.Type()) {
				return nil, ferr.At(ferr.TypeError, v.Pos(),
					"binary operator %q requires numeric operands, got %s and %s", v.Op, v.Left.Type(), v.Right.Type())
			}
			t = types.Union(v.Left.Type(), v.Right.Type())
		}

	case *ast.Unary:
		if v.Op == ast.OpNot {
			t = types.Boolean
		} else {
			t = v.Item.Type()
		}

	case *ast.Compare:
		t = types.Boolean

	case *ast.Attribute:
		t = types.Any

	case *ast.Subscript:
		if seq, ok := v.Base.Type().(*types.Sequence); ok {
			t = seq.ItemType
		} else if dict, ok := v.Base.Type().(*types.Dict); ok {
			t = dict.ItemType
		} else if v.Base.Type() != types.Any {
			return nil, ferr.At(ferr.TypeError, v.Pos(), "cannot subscript non-sequence type %s", v.Base.Type())
		} else {
			t = types.Any
		}

	case *ast.Slice:
		t = v.Base.Type()

	case *ast.Call:
		t = types.Any

	case *ast.If:
		if v.ElseNode != nil {
			t = types.Union(v.IfNode.Type(), v.ElseNode.Type())
		} else {
			t = types.Union(v.IfNode.Type(), types.Null)
		}

	case *ast.For, *ast.While, *ast.Def, *ast.Function, *ast.Return, *ast.Break, *ast.Import:
		t = types.Null

	case *ast.ListFor:
		t = types.NewList(v.Expr.Type(), -1)

	case *ast.Let:
		t = v.Body.Type()

	case *ast.Sample:
		t = types.Numeric

	case *ast.Observe:
		t = types.Null

	case *ast.Body:
		if len(v.Items) == 0 {
			t = types.Null
		} else {
			t = v.Items[len(v.Items)-1].Type()
		}

	default:
		t = types.Any
	}

	n.SetType(t)
	if sym, ok := n.(*ast.Symbol); ok {
		if rec, found := table.Lookup(sym.Name); found {
			rec.ValueType = t
		}
	}
	return t, nil
}

func isNumericish(t types.Type) bool {
	if t == nil {
		return true
	}
	switch t.Kind() {
	case types.KindNumeric, types.KindFloat, types.KindInteger, types.KindBoolean, types.KindAny,
		types.KindString, types.KindList, types.KindTuple:
		return true
	default:
		return false
	}
}
