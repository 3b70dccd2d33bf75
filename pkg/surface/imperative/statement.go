package imperative

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/lexer"
)

func (p *parser) statement() (ast.Node, error) {
	switch {
	case p.isKeyword("def"):
		return p.defStatement()
	case p.isKeyword("if"):
		return p.ifStatement()
	case p.isKeyword("for"):
		return p.forStatement()
	case p.isKeyword("while"):
		return p.whileStatement()
	case p.isKeyword("import"), p.isKeyword("from"):
		return p.importStatement()
	case p.isKeyword("return"):
		return p.returnStatement()
	case p.isKeyword("break"):
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		n := &ast.Break{}
		n.SetPos(pos)
		return n, nil
	default:
		return p.simpleStatement()
	}
}

// defStatement: def name(params): { body }. Params may carry a default
// (`x = expr`); at most one vararg, written `*rest`.
func (p *parser) defStatement() (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectKeyword("def"); err != nil {
		return nil, err
	}
	name, _, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if err := p.expectOpen("("); err != nil {
		return nil, err
	}
	var params []ast.Param
	vararg := ""
	for !p.isClose(")") {
		if p.isSymbol("*") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			v, _, err := p.expectName()
			if err != nil {
				return nil, err
			}
			vararg = v
		} else {
			pname, _, err := p.expectName()
			if err != nil {
				return nil, err
			}
			var def ast.Node
			if p.isSymbol("=") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				if def, err = p.expr(); err != nil {
					return nil, err
				}
			}
			params = append(params, ast.Param{Name: pname, Default: def})
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
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	fn := &ast.Function{Name: name, Params: params, Vararg: vararg, Body: body}
	fn.SetPos(pos)
	return &ast.Def{Name: name, Value: fn}, nil
}

// ifStatement parses `if`/`elif`/`else`, rewriting each `elif` as a nested
// `if` occupying the previous clause's else-branch.
func (p *parser) ifStatement() (ast.Node, error) {
	return p.ifClause("if")
}

func (p *parser) ifClause(kw string) (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectKeyword(kw); err != nil {
		return nil, err
	}
	test, err := p.expr()
	if err != nil {
		return nil, err
	}
	then, err := p.block()
	if err != nil {
		return nil, err
	}
	var elseNode ast.Node
	switch {
	case p.isKeyword("elif"):
		if elseNode, err = p.ifClause("elif"); err != nil {
			return nil, err
		}
	case p.isKeyword("else"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if elseNode, err = p.block(); err != nil {
			return nil, err
		}
	}
	n := &ast.If{Test: test, IfNode: then, ElseNode: elseNode}
	n.SetPos(pos)
	return n, nil
}

// forStatement: for target[, target...] in source: { body } [else: { body }].
// A trailing `else` clause (run when the loop completes without `break`) is
// folded into the loop body as a plain appended Body, since the AST's For
// node has no separate else-slot and break is not reachable once loops are
// fully unrolled by the optimizer.
func (p *parser) forStatement() (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectKeyword("for"); err != nil {
		return nil, err
	}
	var targets []string
	for {
		name, _, err := p.expectName()
		if err != nil {
			return nil, err
		}
		targets = append(targets, name)
		if p.isSymbol(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	source, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseBlock, err := p.block()
		if err != nil {
			return nil, err
		}
		body = ast.MakeBody(body, elseBlock)
	}
	n := &ast.For{Targets: targets, Source: source, Body: body}
	n.SetPos(pos)
	return n, nil
}

func (p *parser) whileStatement() (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectKeyword("while"); err != nil {
		return nil, err
	}
	test, err := p.expr()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseBlock, err := p.block()
		if err != nil {
			return nil, err
		}
		body = ast.MakeBody(body, elseBlock)
	}
	n := &ast.While{Test: test, Body: body}
	n.SetPos(pos)
	return n, nil
}

// importStatement: `import module [as alias]` or `from module import a, b`.
func (p *parser) importStatement() (ast.Node, error) {
	pos := p.cur.Pos
	if p.isKeyword("from") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		module, _, err := p.expectName()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("import"); err != nil {
			return nil, err
		}
		var names []string
		for {
			name, _, err := p.expectName()
			if err != nil {
				return nil, err
			}
			names = append(names, name)
			if p.isSymbol(",") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		n := &ast.Import{Module: module, Names: names}
		n.SetPos(pos)
		return n, nil
	}
	if err := p.expectKeyword("import"); err != nil {
		return nil, err
	}
	module, _, err := p.expectName()
	if err != nil {
		return nil, err
	}
	alias := ""
	if p.isKeyword("as") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if alias, _, err = p.expectName(); err != nil {
			return nil, err
		}
	}
	n := &ast.Import{Module: module, Alias: alias}
	n.SetPos(pos)
	return n, nil
}

func (p *parser) returnStatement() (ast.Node, error) {
	pos := p.cur.Pos
	if err := p.expectKeyword("return"); err != nil {
		return nil, err
	}
	n := &ast.Return{}
	if !p.isSymbol(";") && !p.isClose("}") && p.cur.Kind != lexer.EOF {
		val, err := p.expr()
		if err != nil {
			return nil, err
		}
		n.Value = val
	}
	n.SetPos(pos)
	return n, nil
}

// simpleStatement handles assignment (`name = expr`, `a, b = expr`) and
// bare expression statements (typically a Call, or a rewritten
// Sample/Observe).
func (p *parser) simpleStatement() (ast.Node, error) {
	pos := p.cur.Pos
	first, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.isSymbol(",") {
		// Tuple-target assignment: a, b, c = expr
		names := []string{}
		if sym, ok := first.(*ast.Symbol); ok {
			names = append(names, sym.Name)
		} else {
			return nil, ferr.At(ferr.SyntaxError, pos, "tuple assignment targets must be names")
		}
		for p.isSymbol(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			name, _, err := p.expectName()
			if err != nil {
				return nil, err
			}
			names = append(names, name)
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		val, err := p.expr()
		if err != nil {
			return nil, err
		}
		n := &ast.Def{Names: names, Value: val}
		n.SetPos(pos)
		return n, nil
	}
	if p.isSymbol("=") {
		sym, ok := first.(*ast.Symbol)
		if !ok {
			return nil, ferr.At(ferr.SyntaxError, pos, "assignment target must be a name")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.expr()
		if err != nil {
			return nil, err
		}
		n := &ast.Def{Name: sym.Name, Value: val}
		n.SetPos(pos)
		return n, nil
	}
	return first, nil
}
