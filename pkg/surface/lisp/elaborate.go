package lisp

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/lexer"
)

// Parse reads and elaborates every top-level form in source into a single
// Body node, the common entry point pkg/compiler calls when the language
// hint (or auto-detection) selects the Lisp surface.
func Parse(source string) (ast.Node, error) {
	forms, err := ReadAll(source)
	if err != nil {
		return nil, err
	}
	nodes, err := elaborateAll(forms)
	if err != nil {
		return nil, err
	}
	return ast.MakeBody(nodes), nil
}

func elaborateAll(forms []Sexpr) ([]ast.Node, error) {
	nodes := make([]ast.Node, len(forms))
	for i, f := range forms {
		n, err := elaborate(f)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func setPos(n ast.Node, p lexer.Position) ast.Node {
	if m, ok := n.(interface{ SetPos(lexer.Position) }); ok {
		m.SetPos(p)
	}
	return n
}

func elaborate(s Sexpr) (ast.Node, error) {
	switch v := s.(type) {
	case *SNumber:
		if v.IsFloat {
			return setPos(ast.NewFloat(v.Flt), v.Pos_), nil
		}
		return setPos(ast.NewInt(v.Int), v.Pos_), nil

	case *SString:
		return setPos(ast.NewString(v.Value), v.Pos_), nil

	case *SSymbol:
		switch v.Name {
		case "true":
			return setPos(ast.NewBool(true), v.Pos_), nil
		case "false":
			return setPos(ast.NewBool(false), v.Pos_), nil
		case "nil":
			return setPos(ast.NewNull(), v.Pos_), nil
		default:
			return setPos(ast.NewSymbol(v.Name), v.Pos_), nil
		}

	case *SVector:
		items, err := elaborateAll(v.Items)
		if err != nil {
			return nil, err
		}
		return setPos(ast.MakeVector(items), v.Pos_), nil

	case *SList:
		if v.Paren == '{' {
			return elaborateDict(v)
		}
		return elaborateList(v)

	default:
		return nil, ferr.New(ferr.Internal, "lisp reader produced unknown sexpr type %T", s)
	}
}

func elaborateDict(v *SList) (ast.Node, error) {
	if len(v.Items)%2 != 0 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "map literal requires an even number of key/value forms")
	}
	entries := make([]ast.DictEntry, 0, len(v.Items)/2)
	for i := 0; i < len(v.Items); i += 2 {
		key, err := elaborate(v.Items[i])
		if err != nil {
			return nil, err
		}
		lit, ok := key.(*ast.Value)
		if !ok {
			return nil, ferr.At(ferr.SyntaxError, v.Pos_, "map literal keys must be literal values")
		}
		val, err := elaborate(v.Items[i+1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.DictEntry{Key: lit, Value: val})
	}
	return setPos(&ast.Dict{Entries: entries}, v.Pos_), nil
}

func elaborateList(v *SList) (ast.Node, error) {
	if len(v.Items) == 0 {
		return setPos(ast.NewNull(), v.Pos_), nil
	}
	if head, ok := v.Items[0].(*SSymbol); ok {
		if fn, exists := specialForms[head.Name]; exists {
			return fn(v)
		}
	}
	fnExpr, err := elaborate(v.Items[0])
	if err != nil {
		return nil, err
	}
	args, err := elaborateAll(v.Items[1:])
	if err != nil {
		return nil, err
	}
	return setPos(&ast.Call{Function: fnExpr, Args: args}, v.Pos_), nil
}

func symName(s Sexpr) (string, bool) {
	sym, ok := s.(*SSymbol)
	if !ok {
		return "", false
	}
	return sym.Name, true
}

func requireArity(v *SList, n int, form string) error {
	if len(v.Items)-1 != n {
		return ferr.At(ferr.SyntaxError, v.Pos_, "%q requires exactly %d argument(s), got %d", form, n, len(v.Items)-1)
	}
	return nil
}
