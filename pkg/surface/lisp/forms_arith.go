package lisp

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
)

// arith builds a form handler that left-folds an n-ary arithmetic head
// into a chain of Binary nodes, using identity when given zero arguments
// (spec.md §4.2: "0-argument arithmetic gives the identity element").
func arith(op ast.BinOp, identity int64) formFn {
	return func(v *SList) (ast.Node, error) {
		args, err := elaborateAll(v.Items[1:])
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return setPos(ast.NewInt(identity), v.Pos_), nil
		}
		acc := args[0]
		for _, a := range args[1:] {
			acc = &ast.Binary{Op: op, Left: acc, Right: a}
		}
		return setPos(acc, v.Pos_), nil
	}
}

// arithSub special-cases a single argument as unary negation: (- x) => -x,
// but (- x y ...) folds as ordinary left-associative subtraction.
func arithSub(v *SList) (ast.Node, error) {
	args, err := elaborateAll(v.Items[1:])
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return setPos(ast.NewInt(0), v.Pos_), nil
	}
	if len(args) == 1 {
		return setPos(&ast.Unary{Op: ast.OpNeg, Item: args[0]}, v.Pos_), nil
	}
	acc := args[0]
	for _, a := range args[1:] {
		acc = &ast.Binary{Op: ast.OpSub, Left: acc, Right: a}
	}
	return setPos(acc, v.Pos_), nil
}

// arithDiv mirrors arithSub for the reciprocal case: (/ x) => 1/x.
func arithDiv(v *SList) (ast.Node, error) {
	args, err := elaborateAll(v.Items[1:])
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return setPos(ast.NewInt(1), v.Pos_), nil
	}
	if len(args) == 1 {
		return setPos(&ast.Binary{Op: ast.OpDiv, Left: ast.NewInt(1), Right: args[0]}, v.Pos_), nil
	}
	acc := args[0]
	for _, a := range args[1:] {
		acc = &ast.Binary{Op: ast.OpDiv, Left: acc, Right: a}
	}
	return setPos(acc, v.Pos_), nil
}

// cmp builds a form handler for a comparison head. Two operands produce a
// plain Compare; three produce a chained Compare (spec.md §3's optional
// second_op/second_right); more than three conjoin consecutive pairwise
// comparisons with Binary(and, ...), since the AST's Compare node only
// carries one chain link.
func cmp(op ast.CompareOp) formFn {
	return func(v *SList) (ast.Node, error) {
		args, err := elaborateAll(v.Items[1:])
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, ferr.At(ferr.SyntaxError, v.Pos_, "comparison requires at least 2 operands, got %d", len(args))
		}
		if len(args) == 2 {
			return setPos(&ast.Compare{Left: args[0], Op: op, Right: args[1]}, v.Pos_), nil
		}
		if len(args) == 3 {
			o := op
			return setPos(&ast.Compare{Left: args[0], Op: op, Right: args[1], SecondOp: &o, SecondRight: args[2]}, v.Pos_), nil
		}
		var acc ast.Node
		for i := 0; i+1 < len(args); i++ {
			c := &ast.Compare{Left: args[i], Op: op, Right: args[i+1]}
			if acc == nil {
				acc = c
			} else {
				acc = &ast.Binary{Op: ast.OpAnd, Left: acc, Right: c}
			}
		}
		return setPos(acc, v.Pos_), nil
	}
}

// callForm maps a sequence-primitive head (first, rest, conj, ...) to a
// generic Call; the optimizer (not the parser) is responsible for folding
// these against known-length Vectors/ValueVectors.
func callForm(name string) formFn {
	return func(v *SList) (ast.Node, error) {
		args, err := elaborateAll(v.Items[1:])
		if err != nil {
			return nil, err
		}
		return setPos(&ast.Call{Function: setPos(ast.NewSymbol(name), v.Pos_), Args: args}, v.Pos_), nil
	}
}
