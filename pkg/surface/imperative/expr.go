package imperative

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/lexer"
)

// expr parses a full expression, entering the precedence ladder at its
// lowest tier (lambda, then boolean or).
func (p *parser) expr() (ast.Node, error) {
	if p.isKeyword("lambda") {
		return p.lambda()
	}
	return p.orExpr()
}

func (p *parser) lambda() (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectKeyword("lambda"); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.isSymbol(":") {
		name, _, err := p.expectName()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: name})
		if p.isSymbol(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	body, err := p.expr()
	if err != nil {
		return nil, err
	}
	fn := &ast.Function{Params: params, Body: ast.MakeBody(&ast.Return{Value: body})}
	fn.SetPos(pos)
	return fn, nil
}

func (p *parser) orExpr() (ast.Node, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		n := &ast.Binary{Op: ast.OpOr, Left: left, Right: right}
		n.SetPos(pos)
		left = n
	}
	return left, nil
}

func (p *parser) andExpr() (ast.Node, error) {
	left, err := p.notExpr()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		n := &ast.Binary{Op: ast.OpAnd, Left: left, Right: right}
		n.SetPos(pos)
		left = n
	}
	return left, nil
}

func (p *parser) notExpr() (ast.Node, error) {
	if p.isKeyword("not") {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		item, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		n := &ast.Unary{Op: ast.OpNot, Item: item}
		n.SetPos(pos)
		return n, nil
	}
	return p.comparison()
}

var compareSymbols = map[string]ast.CompareOp{
	"==": ast.CmpEq, "!=": ast.CmpNe, "<": ast.CmpLt, "<=": ast.CmpLe,
	">": ast.CmpGt, ">=": ast.CmpGe,
}

// comparison parses a single (possibly chained) comparison: a < b < c
// becomes a Compare with SecondOp/SecondRight; a third link is rejected
// rather than silently truncated.
func (p *parser) comparison() (ast.Node, error) {
	left, err := p.bitOr()
	if err != nil {
		return nil, err
	}
	op, ok := p.peekCompareOp()
	if !ok {
		return left, nil
	}
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.bitOr()
	if err != nil {
		return nil, err
	}
	n := &ast.Compare{Left: left, Op: op, Right: right}
	n.SetPos(pos)
	if op2, ok := p.peekCompareOp(); ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		third, err := p.bitOr()
		if err != nil {
			return nil, err
		}
		n.SecondOp = &op2
		n.SecondRight = third
		if _, ok := p.peekCompareOp(); ok {
			return nil, ferr.At(ferr.SyntaxError, p.cur.Pos, "comparison chains longer than 3 operands are not supported")
		}
	}
	return n, nil
}

func (p *parser) peekCompareOp() (ast.CompareOp, bool) {
	if p.cur.Kind == lexer.Symbol {
		if op, ok := compareSymbols[p.cur.Text]; ok {
			return op, true
		}
	}
	if p.isKeyword("is") {
		return ast.CmpIs, true
	}
	if p.isKeyword("in") {
		return ast.CmpIn, true
	}
	return 0, false
}

func (p *parser) bitOr() (ast.Node, error) {
	return p.binaryLevel(p.bitXor, map[string]ast.BinOp{"|": ast.OpBitOr})
}

func (p *parser) bitXor() (ast.Node, error) {
	return p.binaryLevel(p.bitAnd, map[string]ast.BinOp{"^": ast.OpBitXor})
}

func (p *parser) bitAnd() (ast.Node, error) {
	return p.binaryLevel(p.shift, map[string]ast.BinOp{"&": ast.OpBitAnd})
}

func (p *parser) shift() (ast.Node, error) {
	return p.binaryLevel(p.additive, map[string]ast.BinOp{"<<": ast.OpShl, ">>": ast.OpShr})
}

func (p *parser) additive() (ast.Node, error) {
	return p.binaryLevel(p.multiplicative, map[string]ast.BinOp{"+": ast.OpAdd, "-": ast.OpSub})
}

func (p *parser) multiplicative() (ast.Node, error) {
	return p.binaryLevel(p.unary, map[string]ast.BinOp{
		"*": ast.OpMul, "/": ast.OpDiv, "%": ast.OpMod, "//": ast.OpFloorDiv,
	})
}

// binaryLevel is a left-associative precedence-climbing helper shared by
// every arithmetic/bitwise tier.
func (p *parser) binaryLevel(next func() (ast.Node, error), ops map[string]ast.BinOp) (ast.Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == lexer.Symbol {
		op, ok := ops[p.cur.Text]
		if !ok {
			break
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		n := &ast.Binary{Op: op, Left: left, Right: right}
		n.SetPos(pos)
		left = n
	}
	return left, nil
}

func (p *parser) unary() (ast.Node, error) {
	if p.isSymbol("-") || p.isSymbol("+") {
		pos := p.cur.Pos
		isNeg := p.isSymbol("-")
		if err := p.advance(); err != nil {
			return nil, err
		}
		item, err := p.unary()
		if err != nil {
			return nil, err
		}
		op := ast.OpPos
		if isNeg {
			op = ast.OpNeg
		}
		n := &ast.Unary{Op: op, Item: item}
		n.SetPos(pos)
		return n, nil
	}
	return p.power()
}

// power: right-associative `**`, binding tighter than unary minus on its
// left but looser on its right (`-2 ** 2 == -4`, `2 ** -2 == 0.25`).
func (p *parser) power() (ast.Node, error) {
	base, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if p.isSymbol("**") {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		n := &ast.Binary{Op: ast.OpPow, Left: base, Right: exp}
		n.SetPos(pos)
		return n, nil
	}
	return base, nil
}

// postfix handles call/subscript/slice/attribute chains applied to a
// primary expression.
func (p *parser) postfix() (ast.Node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isOpen("("):
			n, err = p.call(n)
		case p.isOpen("["):
			n, err = p.subscriptOrSlice(n)
		case p.isSymbol("."):
			n, err = p.attribute(n)
		default:
			return n, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) call(fn ast.Node) (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectOpen("("); err != nil {
		return nil, err
	}
	var args []ast.Node
	var kwargs []ast.KeywordArg
	for !p.isClose(")") {
		if p.cur.Kind == lexer.Symbol && p.peekIsKeywordArg() {
			name, _, err := p.expectName()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol("="); err != nil {
				return nil, err
			}
			val, err := p.expr()
			if err != nil {
				return nil, err
			}
			kwargs = append(kwargs, ast.KeywordArg{Name: name, Value: val})
		} else {
			arg, err := p.expr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if p.isSymbol(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectClose(")"); err != nil {
		return nil, err
	}
	if sym, ok := fn.(*ast.Symbol); ok {
		switch sym.Name {
		case "sample":
			if len(args) != 1 {
				return nil, ferr.At(ferr.SyntaxError, pos, "sample() takes exactly one argument")
			}
			n := &ast.Sample{Dist: args[0]}
			n.SetPos(pos)
			return n, nil
		case "observe":
			if len(args) != 2 {
				return nil, ferr.At(ferr.SyntaxError, pos, "observe() takes exactly two arguments")
			}
			n := &ast.Observe{Dist: args[0], Value: args[1]}
			n.SetPos(pos)
			return n, nil
		}
	}
	n := &ast.Call{Function: fn, Args: args, KeywordArgs: kwargs}
	n.SetPos(pos)
	return n, nil
}

// peekIsKeywordArg looks one token ahead for `name =` (not `name ==`,
// which the lexer already reads as a single "==" symbol token).
func (p *parser) peekIsKeywordArg() bool {
	next, err := p.peekNext()
	if err != nil {
		return false
	}
	return next.Kind == lexer.Symbol && next.Text == "="
}

func (p *parser) subscriptOrSlice(base ast.Node) (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectOpen("["); err != nil {
		return nil, err
	}
	var start ast.Node
	if !p.isSymbol(":") {
		s, err := p.expr()
		if err != nil {
			return nil, err
		}
		start = s
	}
	if p.isSymbol(":") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		var stop ast.Node
		if !p.isClose("]") {
			s, err := p.expr()
			if err != nil {
				return nil, err
			}
			stop = s
		}
		if err := p.expectClose("]"); err != nil {
			return nil, err
		}
		n := &ast.Slice{Base: base, Start: start, Stop: stop}
		n.SetPos(pos)
		return n, nil
	}
	if err := p.expectClose("]"); err != nil {
		return nil, err
	}
	n := &ast.Subscript{Base: base, Index: start}
	n.SetPos(pos)
	return n, nil
}

func (p *parser) attribute(base ast.Node) (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectSymbol("."); err != nil {
		return nil, err
	}
	name, _, err := p.expectName()
	if err != nil {
		return nil, err
	}
	n := &ast.Attribute{Base: base, Name: name}
	n.SetPos(pos)
	return n, nil
}

// primary parses literals, names, parenthesized/tuple expressions, list
// displays and comprehensions, and dict displays.
func (p *parser) primary() (ast.Node, error) {
	pos := p.cur.Pos
	switch {
	case p.cur.Kind == lexer.Number:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		if tok.IsFloat {
			return setPos(ast.NewFloat(tok.Float), pos), nil
		}
		return setPos(ast.NewInt(tok.Int), pos), nil
	case p.cur.Kind == lexer.String:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return setPos(ast.NewString(tok.Text), pos), nil
	case p.isKeyword("True"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return setPos(ast.NewBool(true), pos), nil
	case p.isKeyword("False"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return setPos(ast.NewBool(false), pos), nil
	case p.isKeyword("None"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return setPos(ast.NewNull(), pos), nil
	case p.cur.Kind == lexer.Symbol && p.cur.Text != "(" && p.cur.Text != "[" && p.cur.Text != "{":
		name := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return setPos(ast.NewSymbol(name), pos), nil
	case p.isOpen("("):
		return p.parenOrTuple()
	case p.isOpen("["):
		return p.listDisplayOrComprehension()
	case p.isOpen("{"):
		return p.dictDisplay()
	default:
		return nil, ferr.At(ferr.SyntaxError, pos, "unexpected token %q", p.cur.Text)
	}
}

func setPos(n ast.Node, p lexer.Position) ast.Node {
	if m, ok := n.(interface{ SetPos(lexer.Position) }); ok {
		m.SetPos(p)
	}
	return n
}

func (p *parser) parenOrTuple() (ast.Node, error) {
	if err := p.expectOpen("("); err != nil {
		return nil, err
	}
	if p.isClose(")") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ValueVector{}, nil
	}
	first, err := p.expr()
	if err != nil {
		return nil, err
	}
	if !p.isSymbol(",") {
		if err := p.expectClose(")"); err != nil {
			return nil, err
		}
		return first, nil
	}
	items := []ast.Node{first}
	for p.isSymbol(",") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isClose(")") {
			break
		}
		it, err := p.expr()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := p.expectClose(")"); err != nil {
		return nil, err
	}
	return ast.MakeVector(items), nil
}

// listDisplayOrComprehension parses `[expr, expr, ...]` or the
// one-generator-one-filter comprehension `[expr for name in source [if cond]]`.
func (p *parser) listDisplayOrComprehension() (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectOpen("["); err != nil {
		return nil, err
	}
	if p.isClose("]") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return setPos(&ast.ValueVector{}, pos), nil
	}
	first, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("for") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		target, _, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("in"); err != nil {
			return nil, err
		}
		source, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		var filter ast.Node
		if p.isKeyword("if") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if filter, err = p.expr(); err != nil {
				return nil, err
			}
		}
		if err := p.expectClose("]"); err != nil {
			return nil, err
		}
		n := &ast.ListFor{Target: target, Source: source, Expr: first, Filter: filter}
		n.SetPos(pos)
		return n, nil
	}
	items := []ast.Node{first}
	for p.isSymbol(",") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isClose("]") {
			break
		}
		it, err := p.expr()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := p.expectClose("]"); err != nil {
		return nil, err
	}
	return setPos(ast.MakeVector(items), pos), nil
}

func (p *parser) dictDisplay() (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectOpen("{"); err != nil {
		return nil, err
	}
	var entries []ast.DictEntry
	for !p.isClose("}") {
		key, err := p.expr()
		if err != nil {
			return nil, err
		}
		lit, ok := key.(*ast.Value)
		if !ok {
			return nil, ferr.At(ferr.SyntaxError, pos, "dict keys must be literal values")
		}
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		val, err := p.expr()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.DictEntry{Key: lit, Value: val})
		if p.isSymbol(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectClose("}"); err != nil {
		return nil, err
	}
	n := &ast.Dict{Entries: entries}
	n.SetPos(pos)
	return n, nil
}
