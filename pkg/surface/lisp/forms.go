package lisp

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/lexer"
)

type formFn func(v *SList) (ast.Node, error)

var specialForms map[string]formFn

func init() {
	specialForms = map[string]formFn{
		"def": formDef, "defn": formDefn, "fn": formFn_, "let": formLet,
		"do": formDo, "if": formIf, "if-not": formIfNot, "cond": formCond,
		"for": formFor, "while": formWhile, "loop": formUnimplemented,
		"apply": formUnimplemented,
		"sample": formSample, "observe": formObserve,
		"repeat": formRepeat, "repeatedly": formRepeatedly,
		"require": formRequire, "use": formRequire,
		"->": formThreadFirst, "->>": formThreadLast,

		"+": arith(ast.OpAdd, 0), "-": arithSub, "*": arith(ast.OpMul, 1), "/": arithDiv,
		"bit-and": arith(ast.OpBitAnd, -1), "bit-or": arith(ast.OpBitOr, 0), "bit-xor": arith(ast.OpBitXor, 0),
		"and": arith(ast.OpAnd, 1), "or": arith(ast.OpOr, 0),
		"<": cmp(ast.CmpLt), "<=": cmp(ast.CmpLe), ">": cmp(ast.CmpGt), ">=": cmp(ast.CmpGe),
		"=": cmp(ast.CmpEq), "not=": cmp(ast.CmpNe),

		"conj": callForm("conj"), "cons": callForm("cons"), "concat": callForm("concat"),
		"get": callForm("get"), "nth": callForm("nth"), "first": callForm("first"),
		"second": callForm("second"), "last": callForm("last"), "rest": callForm("rest"),
		"take": callForm("take"), "drop": callForm("drop"),
	}
}

// formUnimplemented covers the Lisp surface's incomplete hooks (`loop`,
// `apply`, and by extension the `#()` anonymous-function reader macro,
// which never reaches this dispatch table because the reader has no bare
// '#' token handling) per spec.md §9: fail with SyntaxError instead of
// guessing semantics.
func formUnimplemented(v *SList) (ast.Node, error) {
	head, _ := symName(v.Items[0])
	return nil, ferr.At(ferr.SyntaxError, v.Pos_, "form %q is not implemented", head)
}

func formDef(v *SList) (ast.Node, error) {
	if len(v.Items) != 3 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q requires a name and a value", "def")
	}
	name, ok := symName(v.Items[1])
	if !ok {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q name must be a symbol", "def")
	}
	val, err := elaborate(v.Items[2])
	if err != nil {
		return nil, err
	}
	return setPos(&ast.Def{Name: name, Value: val}, v.Pos_), nil
}

// formDefn: (defn name [params...] body...), optional leading doc string.
func formDefn(v *SList) (ast.Node, error) {
	if len(v.Items) < 3 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q requires a name, a parameter vector, and a body", "defn")
	}
	name, ok := symName(v.Items[1])
	if !ok {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q name must be a symbol", "defn")
	}
	rest := v.Items[2:]
	doc := ""
	if s, ok := rest[0].(*SString); ok && len(rest) > 1 {
		doc = s.Value
		rest = rest[1:]
	}
	fn, err := buildFunction(name, doc, rest, v.Pos_)
	if err != nil {
		return nil, err
	}
	return setPos(&ast.Def{Name: name, Value: fn}, v.Pos_), nil
}

// formFn_: (fn [params...] body...) or (fn name [params...] body...).
func formFn_(v *SList) (ast.Node, error) {
	if len(v.Items) < 2 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q requires a parameter vector and a body", "fn")
	}
	rest := v.Items[1:]
	name := ""
	if n, ok := symName(rest[0]); ok {
		name = n
		rest = rest[1:]
	}
	return buildFunction(name, "", rest, v.Pos_)
}

func buildFunction(name, doc string, rest []Sexpr, p lexer.Position) (ast.Node, error) {
	vec, ok := rest[0].(*SVector)
	if !ok {
		return nil, ferr.At(ferr.SyntaxError, p, "expected a parameter vector")
	}
	params := make([]ast.Param, 0, len(vec.Items))
	vararg := ""
	seen := map[string]bool{}
	for i := 0; i < len(vec.Items); i++ {
		pname, ok := symName(vec.Items[i])
		if !ok {
			return nil, ferr.At(ferr.SyntaxError, p, "parameter names must be symbols")
		}
		if pname == "&" {
			if i+1 >= len(vec.Items) {
				return nil, ferr.At(ferr.SyntaxError, p, "'&' must be followed by a rest-parameter name")
			}
			vararg, _ = symName(vec.Items[i+1])
			break
		}
		if seen[pname] {
			return nil, ferr.At(ferr.SyntaxError, p, "duplicate parameter name %q", pname)
		}
		seen[pname] = true
		params = append(params, ast.Param{Name: pname})
	}
	body, err := elaborateAll(rest[1:])
	if err != nil {
		return nil, err
	}
	return setPos(&ast.Function{Name: name, Params: params, Vararg: vararg, Body: ast.MakeBody(body), Doc: doc}, p), nil
}
