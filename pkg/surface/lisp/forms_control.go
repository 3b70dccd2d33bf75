package lisp

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
)

// formLet: (let [a 1 b 2] body...); desugars a multi-pair binding vector
// right-to-left into nested single-binding Lets, per spec.md §3 (Let has
// single-binding semantics).
func formLet(v *SList) (ast.Node, error) {
	if len(v.Items) < 2 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q requires a binding vector and a body", "let")
	}
	bindings, ok := v.Items[1].(*SVector)
	if !ok || len(bindings.Items)%2 != 0 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q binding vector must have an even number of forms", "let")
	}
	bodyNodes, err := elaborateAll(v.Items[2:])
	if err != nil {
		return nil, err
	}
	body := ast.MakeBody(bodyNodes)
	for i := len(bindings.Items) - 2; i >= 0; i -= 2 {
		name, ok := symName(bindings.Items[i])
		if !ok {
			return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q binding target must be a symbol", "let")
		}
		src, err := elaborate(bindings.Items[i+1])
		if err != nil {
			return nil, err
		}
		body = setPos(&ast.Let{Target: name, Source: src, Body: body}, v.Pos_)
	}
	return body, nil
}

func formDo(v *SList) (ast.Node, error) {
	items, err := elaborateAll(v.Items[1:])
	if err != nil {
		return nil, err
	}
	return setPos(ast.MakeBody(items), v.Pos_), nil
}

func formIf(v *SList) (ast.Node, error) {
	if len(v.Items) < 3 || len(v.Items) > 4 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q requires a test, a then-branch, and an optional else-branch", "if")
	}
	test, err := elaborate(v.Items[1])
	if err != nil {
		return nil, err
	}
	thenN, err := elaborate(v.Items[2])
	if err != nil {
		return nil, err
	}
	var elseN ast.Node
	if len(v.Items) == 4 {
		if elseN, err = elaborate(v.Items[3]); err != nil {
			return nil, err
		}
	}
	return setPos(&ast.If{Test: test, IfNode: thenN, ElseNode: elseN}, v.Pos_), nil
}

func formIfNot(v *SList) (ast.Node, error) {
	n, err := formIf(v)
	if err != nil {
		return nil, err
	}
	ifn := n.(*ast.If)
	ifn.Test = setPos(&ast.Unary{Op: ast.OpNot, Item: ifn.Test}, v.Pos_)
	return ifn, nil
}

// formCond: (cond t1 e1 t2 e2 ... :else ed) desugars into a chain of
// nested Ifs; a trailing `:else` (or plain `else`) test becomes the final
// else-branch instead of another If.
func formCond(v *SList) (ast.Node, error) {
	clauses := v.Items[1:]
	if len(clauses)%2 != 0 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q requires an even number of test/expr forms", "cond")
	}
	var build func(i int) (ast.Node, error)
	build = func(i int) (ast.Node, error) {
		if i >= len(clauses) {
			return ast.NewNull(), nil
		}
		if name, ok := symName(clauses[i]); ok && (name == "else" || name == ":else") {
			return elaborate(clauses[i+1])
		}
		test, err := elaborate(clauses[i])
		if err != nil {
			return nil, err
		}
		then, err := elaborate(clauses[i+1])
		if err != nil {
			return nil, err
		}
		rest, err := build(i + 2)
		if err != nil {
			return nil, err
		}
		return &ast.If{Test: test, IfNode: then, ElseNode: rest}, nil
	}
	n, err := build(0)
	if err != nil {
		return nil, err
	}
	return setPos(n, v.Pos_), nil
}

// formFor: (for [i coll] body...) — a statement loop (side-effecting body,
// e.g. nested observe/sample), as opposed to ListFor's comprehension.
func formFor(v *SList) (ast.Node, error) {
	if len(v.Items) < 3 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q requires a binding vector and a body", "for")
	}
	binding, ok := v.Items[1].(*SVector)
	if !ok || len(binding.Items) != 2 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q binding vector must be [name source]", "for")
	}
	target, ok := symName(binding.Items[0])
	if !ok {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q target must be a symbol", "for")
	}
	source, err := elaborate(binding.Items[1])
	if err != nil {
		return nil, err
	}
	body, err := elaborateAll(v.Items[2:])
	if err != nil {
		return nil, err
	}
	return setPos(&ast.For{Targets: []string{target}, Source: source, Body: ast.MakeBody(body)}, v.Pos_), nil
}

func formWhile(v *SList) (ast.Node, error) {
	if len(v.Items) < 2 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q requires a test and a body", "while")
	}
	test, err := elaborate(v.Items[1])
	if err != nil {
		return nil, err
	}
	body, err := elaborateAll(v.Items[2:])
	if err != nil {
		return nil, err
	}
	return setPos(&ast.While{Test: test, Body: ast.MakeBody(body)}, v.Pos_), nil
}

func formSample(v *SList) (ast.Node, error) {
	if err := requireArity(v, 1, "sample"); err != nil {
		return nil, err
	}
	dist, err := elaborate(v.Items[1])
	if err != nil {
		return nil, err
	}
	return setPos(&ast.Sample{Dist: dist}, v.Pos_), nil
}

func formObserve(v *SList) (ast.Node, error) {
	if err := requireArity(v, 2, "observe"); err != nil {
		return nil, err
	}
	dist, err := elaborate(v.Items[1])
	if err != nil {
		return nil, err
	}
	val, err := elaborate(v.Items[2])
	if err != nil {
		return nil, err
	}
	return setPos(&ast.Observe{Dist: dist, Value: val}, v.Pos_), nil
}

// formRepeat: (repeat n expr) builds a Vector with n copies of expr
// (each independently elaborated so repeated `sample`s are distinct
// nodes, not a shared one).
func formRepeat(v *SList) (ast.Node, error) {
	if err := requireArity(v, 2, "repeat"); err != nil {
		return nil, err
	}
	n, ok := v.Items[1].(*SNumber)
	if !ok || n.IsFloat {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q count must be a literal integer", "repeat")
	}
	items := make([]ast.Node, n.Int)
	for i := range items {
		el, err := elaborate(v.Items[2])
		if err != nil {
			return nil, err
		}
		items[i] = el
	}
	return setPos(ast.MakeVector(items), v.Pos_), nil
}

// formRepeatedly is repeat's call-by-name-n-times cousin: (repeatedly n (fn [] ...)).
func formRepeatedly(v *SList) (ast.Node, error) {
	if err := requireArity(v, 2, "repeatedly"); err != nil {
		return nil, err
	}
	n, ok := v.Items[1].(*SNumber)
	if !ok || n.IsFloat {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q count must be a literal integer", "repeatedly")
	}
	items := make([]ast.Node, n.Int)
	for i := range items {
		fn, err := elaborate(v.Items[2])
		if err != nil {
			return nil, err
		}
		items[i] = &ast.Call{Function: fn}
	}
	return setPos(ast.MakeVector(items), v.Pos_), nil
}

// formRequire/formUse: (require [ns.path :as alias]) or (require ns.path).
func formRequire(v *SList) (ast.Node, error) {
	if len(v.Items) != 2 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q requires exactly one module form", "require")
	}
	if vec, ok := v.Items[1].(*SVector); ok {
		if len(vec.Items) == 0 {
			return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q module vector must not be empty", "require")
		}
		module, ok := symName(vec.Items[0])
		if !ok {
			return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q module name must be a symbol", "require")
		}
		alias := ""
		for i := 1; i+1 < len(vec.Items); i += 2 {
			if kw, _ := symName(vec.Items[i]); kw == ":as" {
				alias, _ = symName(vec.Items[i+1])
			}
		}
		return setPos(&ast.Import{Module: module, Alias: alias}, v.Pos_), nil
	}
	module, ok := symName(v.Items[1])
	if !ok {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "%q module name must be a symbol", "require")
	}
	return setPos(&ast.Import{Module: module}, v.Pos_), nil
}

// formThreadFirst: (-> x f (g a) h) => (h (g (f x) a)) with x threaded as
// each subsequent form's first argument.
func formThreadFirst(v *SList) (ast.Node, error) {
	return thread(v, true)
}

// formThreadLast: (->> x f (g a)) => (g a (f x)) with x threaded as each
// subsequent form's last argument.
func formThreadLast(v *SList) (ast.Node, error) {
	return thread(v, false)
}

func thread(v *SList, first bool) (ast.Node, error) {
	if len(v.Items) < 2 {
		return nil, ferr.At(ferr.SyntaxError, v.Pos_, "threading macro requires an initial expression")
	}
	acc, err := elaborate(v.Items[1])
	if err != nil {
		return nil, err
	}
	for _, step := range v.Items[2:] {
		switch s := step.(type) {
		case *SSymbol:
			fn, err := elaborate(s)
			if err != nil {
				return nil, err
			}
			acc = &ast.Call{Function: fn, Args: []ast.Node{acc}}
		case *SList:
			fn, err := elaborate(s.Items[0])
			if err != nil {
				return nil, err
			}
			args, err := elaborateAll(s.Items[1:])
			if err != nil {
				return nil, err
			}
			if first {
				args = append([]ast.Node{acc}, args...)
			} else {
				args = append(args, acc)
			}
			acc = &ast.Call{Function: fn, Args: args}
		default:
			return nil, ferr.At(ferr.SyntaxError, v.Pos_, "threading macro step must be a symbol or a form")
		}
	}
	return setPos(acc, v.Pos_), nil
}
