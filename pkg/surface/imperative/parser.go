// Package imperative implements the imperative expression-oriented surface
// syntax: assignments, def-functions, if/elif/else, for/else, while/else,
// one-generator list comprehensions, subscript/slice, tuple targets,
// import, and lambda — grounded on
// original_source/pyppl/ppl_python_parser.py, translated into the same
// common pkg/ast the Lisp surface produces.
//
// The source language has no significant indentation (the shared lexer's
// token set, per spec.md §2, has no INDENT/DEDENT kind); a block is
// introduced by ':' and delimited with '{' ... '}'. Newline tokens are
// discarded, so a statement ends where its grammar ends; ';' may separate
// statements explicitly.
package imperative

import (
	"foppl.dev/compiler/pkg/ast"
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/lexer"
)

var keywords = []string{
	"def", "if", "elif", "else", "for", "in", "while", "import", "from", "as",
	"return", "break", "lambda", "and", "or", "not", "is",
	"True", "False", "None",
}

type parser struct {
	lex    *lexer.Lexer
	cur    lexer.Token
	prev   lexer.Token
	peeked *lexer.Token
}

// Parse tokenizes and parses source into a single Body node.
func Parse(source string) (ast.Node, error) {
	l := lexer.New(lexer.NewCharSource(source))
	l.LineComment = "#"
	l.AddKeywords(keywords...)
	p := &parser{lex: l}
	if err := p.advance(); err != nil {
		return nil, err
	}
	stmts, err := p.statements(func(p *parser) bool { return p.cur.Kind == lexer.EOF })
	if err != nil {
		return nil, err
	}
	return ast.MakeBody(stmts), nil
}

func (p *parser) advance() error {
	p.prev = p.cur
	if p.peeked != nil {
		p.cur = *p.peeked
		p.peeked = nil
		return nil
	}
	t, err := p.nextSignificant()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

// peekNext returns the token that would follow p.cur without consuming it,
// caching the result so the following advance() reuses it rather than
// re-lexing.
func (p *parser) peekNext() (lexer.Token, error) {
	if p.peeked == nil {
		t, err := p.nextSignificant()
		if err != nil {
			return lexer.Token{}, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

func (p *parser) nextSignificant() (lexer.Token, error) {
	for {
		t, err := p.lex.Next()
		if err != nil {
			return lexer.Token{}, err
		}
		if t.Kind == lexer.Newline {
			continue // statement separators are handled structurally, not as tokens
		}
		return t, nil
	}
}

func (p *parser) isKeyword(word string) bool {
	return p.cur.Kind == lexer.Keyword && p.cur.Text == word
}

func (p *parser) isSymbol(text string) bool {
	return p.cur.Kind == lexer.Symbol && p.cur.Text == text
}

func (p *parser) isOpen(text string) bool {
	return p.cur.Kind == lexer.LeftBracket && p.cur.Text == text
}

func (p *parser) isClose(text string) bool {
	return p.cur.Kind == lexer.RightBracket && p.cur.Text == text
}

func (p *parser) expectOpen(text string) error {
	if !p.isOpen(text) {
		return ferr.At(ferr.SyntaxError, p.cur.Pos, "expected %q, got %q", text, p.cur.Text)
	}
	return p.advance()
}

func (p *parser) expectClose(text string) error {
	if !p.isClose(text) {
		return ferr.At(ferr.UnmatchedBracket, p.cur.Pos, "expected %q, got %q", text, p.cur.Text)
	}
	return p.advance()
}

func (p *parser) expectSymbol(text string) error {
	if !p.isSymbol(text) {
		return ferr.At(ferr.SyntaxError, p.cur.Pos, "expected %q, got %q", text, p.cur.Text)
	}
	return p.advance()
}

func (p *parser) expectKeyword(word string) error {
	if !p.isKeyword(word) {
		return ferr.At(ferr.SyntaxError, p.cur.Pos, "expected keyword %q, got %q", word, p.cur.Text)
	}
	return p.advance()
}

func (p *parser) expectName() (string, lexer.Position, error) {
	if p.cur.Kind != lexer.Symbol {
		return "", p.cur.Pos, ferr.At(ferr.SyntaxError, p.cur.Pos, "expected a name, got %q", p.cur.Text)
	}
	name, pos := p.cur.Text, p.cur.Pos
	return name, pos, p.advance()
}

// statements parses statements until stop reports true.
func (p *parser) statements(stop func(*parser) bool) ([]ast.Node, error) {
	var out []ast.Node
	for !stop(p) {
		if p.isSymbol(";") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.cur.Kind == lexer.EOF {
			return nil, ferr.At(ferr.UnmatchedBracket, p.cur.Pos, "unexpected end of input while parsing a block")
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// block parses ':' '{' statements '}'.
func (p *parser) block() (ast.Node, error) {
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	if err := p.expectOpen("{"); err != nil {
		return nil, err
	}
	stmts, err := p.statements(func(p *parser) bool { return p.isClose("}") })
	if err != nil {
		return nil, err
	}
	if err := p.expectClose("}"); err != nil {
		return nil, err
	}
	return ast.MakeBody(stmts), nil
}
