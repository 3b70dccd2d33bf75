package lexer_test

import (
	"testing"

	"foppl.dev/compiler/pkg/ferr"
	"foppl.dev/compiler/pkg/lexer"
)

func tokenize(t *testing.T, source string, keywords ...string) []lexer.Token {
	t.Helper()
	l := lexer.New(lexer.NewCharSource(source))
	l.AddKeywords(keywords...)
	var out []lexer.Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		if tok.Kind == lexer.EOF {
			return out
		}
		out = append(out, tok)
	}
}

func TestLexerIntegerBases(t *testing.T) {
	cases := []struct {
		source string
		want   int64
	}{
		{"0b101", 5},
		{"0o17", 15},
		{"0x1F", 31},
		{"42", 42},
	}
	for _, c := range cases {
		toks := tokenize(t, c.source)
		if len(toks) != 1 || toks[0].Kind != lexer.Number || toks[0].Int != c.want {
			t.Fatalf("%q: expected a single Number token with Int=%d, got %#v", c.source, c.want, toks)
		}
	}
}

func TestLexerFloatWithExponent(t *testing.T) {
	toks := tokenize(t, "1.5e-3")
	if len(toks) != 1 || !toks[0].IsFloat || toks[0].Float != 1.5e-3 {
		t.Fatalf("expected a single float token, got %#v", toks)
	}
}

func TestLexerStringPreservesEscapes(t *testing.T) {
	toks := tokenize(t, `"a\nb"`)
	if len(toks) != 1 || toks[0].Kind != lexer.String || toks[0].Text != `"a\nb"` {
		t.Fatalf("expected the raw escaped string text, got %#v", toks)
	}
}

func TestLexerCompositeSymbols(t *testing.T) {
	toks := tokenize(t, "== <= ** // << >>")
	want := []string{"==", "<=", "**", "//", "<<", ">>"}
	if len(toks) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %#v", len(want), len(toks), toks)
	}
	for i, w := range want {
		if toks[i].Text != w {
			t.Fatalf("token %d: expected %q, got %q", i, w, toks[i].Text)
		}
	}
}

func TestLexerKeywordReclassification(t *testing.T) {
	toks := tokenize(t, "if x else", "if", "else")
	if toks[0].Kind != lexer.Keyword || toks[0].Text != "if" {
		t.Fatalf("expected 'if' to lex as a Keyword, got %#v", toks[0])
	}
	if toks[1].Kind != lexer.Symbol || toks[1].Text != "x" {
		t.Fatalf("expected 'x' to lex as a Symbol, got %#v", toks[1])
	}
	if toks[2].Kind != lexer.Keyword || toks[2].Text != "else" {
		t.Fatalf("expected 'else' to lex as a Keyword, got %#v", toks[2])
	}
}

func TestLexerInvalidCharacterFails(t *testing.T) {
	l := lexer.New(lexer.NewCharSource("\x01"))
	_, err := l.Next()
	if !ferr.Is(err, ferr.InvalidCharacter) {
		t.Fatalf("expected InvalidCharacter, got %v", err)
	}
}

func TestLexerNewlineIsItsOwnToken(t *testing.T) {
	toks := tokenize(t, "a\nb")
	if len(toks) != 3 || toks[1].Kind != lexer.Newline {
		t.Fatalf("expected [a, newline, b], got %#v", toks)
	}
}
