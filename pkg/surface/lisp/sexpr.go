// Package lisp implements the Lisp-family surface syntax: a bracket-matching
// s-expression reader followed by a dispatch-table elaborator that turns
// each form into the common pkg/ast tree, grounded on
// original_source/pyppl/ppl_clojure_parser.py.
package lisp

import "foppl.dev/compiler/pkg/lexer"

// Sexpr is the raw, untyped syntax tree the reader produces before the
// elaborator dispatches on each form's head symbol. Kept as its own small
// sum (distinct from pkg/ast) because most Sexprs never survive past
// elaboration — only the ones that become literals do.
type Sexpr interface{ sexprPos() lexer.Position }

type SList struct {
	Items  []Sexpr
	Paren  rune // '(' or '{' -- '{' denotes a map literal
	Pos_   lexer.Position
}

func (s *SList) sexprPos() lexer.Position { return s.Pos_ }

type SVector struct {
	Items []Sexpr
	Pos_  lexer.Position
}

func (s *SVector) sexprPos() lexer.Position { return s.Pos_ }

type SSymbol struct {
	Name string
	Pos_ lexer.Position
}

func (s *SSymbol) sexprPos() lexer.Position { return s.Pos_ }

type SNumber struct {
	IsFloat bool
	Int     int64
	Flt     float64
	Pos_    lexer.Position
}

func (s *SNumber) sexprPos() lexer.Position { return s.Pos_ }

type SString struct {
	Value string
	Pos_  lexer.Position
}

func (s *SString) sexprPos() lexer.Position { return s.Pos_ }
