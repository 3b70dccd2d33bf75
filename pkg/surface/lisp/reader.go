package lisp

import (
	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/lexer"
)

// newLexer configures the shared lexer for the Lisp dialect: ',' is
// treated as insignificant whitespace (Clojure-style separator) and the
// "symbol" punctuation set is reclassified as Alpha so identifiers like
// `->`, `not=`, `bit-and` read as a single name token instead of a run of
// one-character SymbolChar tokens.
func newLexer(source string) *lexer.Lexer {
	l := lexer.New(lexer.NewCharSource(source))
	l.Cat.Set(',', lexer.Whitespace)
	for _, r := range "!$%&*+-./:<>=?" {
		l.Cat.Set(r, lexer.Alpha)
	}
	l.LineComment = ";"
	return l
}

// reader turns a token stream into a tree of Sexprs, matching the bracket
// kinds ()/[]/{}.
type reader struct {
	lex  *lexer.Lexer
	peek *lexer.Token
}

func newReader(source string) *reader { return &reader{lex: newLexer(source)} }

func (r *reader) next() (lexer.Token, error) {
	if r.peek != nil {
		t := *r.peek
		r.peek = nil
		return t, nil
	}
	return r.lex.Next()
}

func (r *reader) peekTok() (lexer.Token, error) {
	if r.peek == nil {
		t, err := r.lex.Next()
		if err != nil {
			return lexer.Token{}, err
		}
		r.peek = &t
	}
	return *r.peek, nil
}

// ReadAll reads every top-level form in source.
func ReadAll(source string) ([]Sexpr, error) {
	r := newReader(source)
	var forms []Sexpr
	for {
		tok, err := r.peekTok()
		if err != nil {
			return nil, err
		}
		if tok.Kind == lexer.EOF {
			return forms, nil
		}
		form, err := r.readForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
}

func (r *reader) readForm() (Sexpr, error) {
	tok, err := r.next()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case lexer.EOF:
		return nil, ferr.At(ferr.UnmatchedBracket, tok.Pos, "unexpected end of input, expected a form")

	case lexer.Number:
		return &SNumber{IsFloat: tok.IsFloat, Int: tok.Int, Flt: tok.Float, Pos_: tok.Pos}, nil

	case lexer.String:
		return &SString{Value: unquote(tok.Text), Pos_: tok.Pos}, nil

	case lexer.Symbol, lexer.Keyword:
		return &SSymbol{Name: tok.Text, Pos_: tok.Pos}, nil

	case lexer.Newline:
		return r.readForm()

	case lexer.LeftBracket:
		return r.readSeq(tok)

	case lexer.RightBracket:
		return nil, ferr.At(ferr.UnmatchedBracket, tok.Pos, "unexpected closing bracket %q", tok.Text)

	default:
		return nil, ferr.At(ferr.SyntaxError, tok.Pos, "unexpected token %q", tok.Text)
	}
}

var closing = map[string]string{"(": ")", "[": "]", "{": "}"}

func (r *reader) readSeq(open lexer.Token) (Sexpr, error) {
	want := closing[open.Text]
	var items []Sexpr
	for {
		tok, err := r.peekTok()
		if err != nil {
			return nil, err
		}
		if tok.Kind == lexer.EOF {
			return nil, ferr.At(ferr.UnmatchedBracket, open.Pos, "unmatched %q, never closed", open.Text)
		}
		if tok.Kind == lexer.Newline {
			r.next()
			continue
		}
		if tok.Kind == lexer.RightBracket {
			r.next()
			if tok.Text != want {
				return nil, ferr.At(ferr.UnmatchedBracket, tok.Pos,
					"mismatched bracket: opened with %q, closed with %q", open.Text, tok.Text)
			}
			break
		}
		item, err := r.readForm()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	switch open.Text {
	case "[":
		return &SVector{Items: items, Pos_: open.Pos}, nil
	default:
		paren := '('
		if open.Text == "{" {
			paren = '{'
		}
		return &SList{Items: items, Paren: paren, Pos_: open.Pos}, nil
	}
}

// unquote strips the surrounding quote characters the lexer preserved
// verbatim; it does not interpret backslash escapes (spec.md §4.1:
// "escapes preserved verbatim").
func unquote(raw string) string {
	if len(raw) >= 2 {
		return raw[1 : len(raw)-1]
	}
	return raw
}
