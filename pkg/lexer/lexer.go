package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"foppl.dev/compiler/pkg/ferr"
)

// extSymbols are the multi-character operators read_symbol recognizes
// greedily (longest match first) before falling back to a single char.
var extSymbols = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<=": true, ">=": true, "==": true, "!=": true,
	"<<": true, ">>": true, "**": true, "//": true,
	"&&": true, "||": true, "&=": true, "|=": true,
	"===": true, "<<=": true, ">>=": true, "**=": true, "//=": true,
	"..": true, "...": true,
	"<~": true, "~>": true, "->": true, "->>": true,
}

// Lexer scans a CharSource into Tokens using a CategoryCodes table and a
// configurable keyword set. Both surface grammars construct their own
// Lexer (see pkg/surface/lisp and pkg/surface/imperative) rather than
// sharing an instance, since each needs different keywords and a couple of
// category overrides.
type Lexer struct {
	Source      *CharSource
	Cat         *CategoryCodes
	Keywords    map[string]bool
	LineComment string
}

func New(source *CharSource) *Lexer {
	return &Lexer{Source: source, Cat: NewCategoryCodes(), Keywords: map[string]bool{}}
}

func (l *Lexer) AddKeywords(words ...string) {
	for _, w := range words {
		l.Keywords[w] = true
	}
}

// Next returns the next Token, or an EOF-kind Token once input is
// exhausted. Returns a *ferr.Error of kind InvalidCharacter on any rune the
// category table doesn't know how to start a token with.
func (l *Lexer) Next() (Token, error) {
	src := l.Source
	for {
		if src.Eof() {
			return Token{Kind: EOF, Pos: src.Pos()}, nil
		}

		if l.LineComment != "" && src.Test(l.LineComment) {
			src.DropWhile(func(r rune) bool { return r != '\n' })
			continue
		}

		pos := src.Pos()
		cc := l.Cat.Of(src.Current())

		switch cc {
		case Ignore:
			src.Drop(1)
			continue
		case Whitespace:
			src.DropWhile(func(r rune) bool { return l.Cat.Of(r) == Whitespace })
			continue
		case LineComment:
			src.DropWhile(func(r rune) bool { return r != '\n' })
			continue
		case Invalid:
			return Token{}, ferr.At(ferr.InvalidCharacter, pos,
				"invalid character %q (0x%x) in input stream", src.Current(), src.Current())
		case StringDelimiter:
			text := l.readString()
			return Token{Kind: String, Text: text, Pos: pos}, nil
		case SymbolChar, Delimiter:
			text := l.readSymbol()
			return Token{Kind: Symbol, Text: text, Pos: pos}, nil
		case CatLeftBracket:
			return Token{Kind: LeftBracket, Text: string(src.Next()), Pos: pos}, nil
		case CatRightBracket:
			return Token{Kind: RightBracket, Text: string(src.Next()), Pos: pos}, nil
		case CatNewline:
			return Token{Kind: Newline, Text: string(src.Next()), Pos: pos}, nil
		case Numeric:
			return l.readNumber(pos)
		case Alpha:
			name := l.readName()
			kind := Symbol
			if l.Keywords[name] {
				kind = Keyword
			}
			return Token{Kind: kind, Text: name, Pos: pos}, nil
		default:
			return Token{}, ferr.At(ferr.InvalidCharacter, pos,
				"invalid character %q in input stream", src.Current())
		}
	}
}

func (l *Lexer) readName() string {
	return l.Source.TakeWhile(func(r rune) bool {
		cc := l.Cat.Of(r)
		return cc == Alpha || cc == Numeric
	})
}

func (l *Lexer) readNumber(pos Position) (Token, error) {
	src := l.Source
	if src.Current() == '0' && strings.ContainsRune("xXbBoO", src.Peek(1)) {
		base := map[rune]int{'x': 16, 'X': 16, 'o': 8, 'O': 8, 'b': 2, 'B': 2}[src.Peek(1)]
		var isDigitOfBase func(rune) bool
		switch base {
		case 16:
			isDigitOfBase = func(r rune) bool {
				return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
			}
		case 8:
			isDigitOfBase = func(r rune) bool { return r >= '0' && r <= '7' }
		default:
			isDigitOfBase = func(r rune) bool { return r == '0' || r == '1' }
		}
		src.Drop(2)
		digits := src.TakeWhile(isDigitOfBase)
		n, err := strconv.ParseInt(digits, base, 64)
		if err != nil {
			return Token{}, ferr.At(ferr.SyntaxError, pos, "malformed base-%d integer literal %q", base, digits)
		}
		return Token{Kind: Number, Text: digits, Pos: pos, Int: n}, nil
	}

	result := src.TakeWhile(isDigit)
	isFloat := false
	if src.Current() == '.' && isDigit(src.Peek(1)) {
		isFloat = true
		result += string(src.Next())
		result += src.TakeWhile(isDigit)
	}
	if (src.Current() == 'e' || src.Current() == 'E') &&
		(isDigit(src.Peek(1)) || (strings.ContainsRune("+-", src.Peek(1)) && isDigit(src.Peek(2)))) {
		isFloat = true
		result += string(src.Next())
		if src.Current() == '+' || src.Current() == '-' {
			result += string(src.Next())
		}
		result += src.TakeWhile(isDigit)
	}

	tok := Token{Kind: Number, Text: result, Pos: pos, IsFloat: isFloat}
	if isFloat {
		f, err := strconv.ParseFloat(result, 64)
		if err != nil {
			return Token{}, ferr.At(ferr.SyntaxError, pos, "malformed float literal %q", result)
		}
		tok.Float = f
	} else {
		n, err := strconv.ParseInt(result, 10, 64)
		if err != nil {
			return Token{}, ferr.At(ferr.SyntaxError, pos, "malformed integer literal %q", result)
		}
		tok.Int = n
	}
	return tok, nil
}

func (l *Lexer) readString() string {
	src := l.Source
	delimiter := src.Current()
	i := 1
	for {
		p := src.Peek(i)
		if p == delimiter || p == eof {
			break
		}
		if p == '\\' {
			i += 2
		} else {
			i++
		}
	}
	if src.Peek(i) == delimiter {
		i++
	}
	return src.Take(i)
}

// readSymbol consumes one operator token, preferring the longest match in
// extSymbols (three characters, then two, then falling back to one).
func (l *Lexer) readSymbol() string {
	src := l.Source
	first := src.Next()
	if l.Cat.Of(src.Current()) == SymbolChar {
		if l.Cat.Of(src.Peek(1)) == SymbolChar {
			three := fmt.Sprintf("%c%c%c", first, src.Current(), src.Peek(1))
			if extSymbols[three] {
				return string(first) + src.Take(2)
			}
		}
		two := fmt.Sprintf("%c%c", first, src.Current())
		if extSymbols[two] {
			return string(first) + string(src.Next())
		}
	}
	return string(first)
}
