// Package lexer turns source text into a flat token stream shared by both
// surface grammars (Lisp-family and imperative). Both grammars configure the
// same CharSource/Lexer machinery with a different CategoryCodes table and
// keyword set instead of running two unrelated scanners.
package lexer

import (
	"foppl.dev/compiler/pkg/pos"
)

// Position is re-exported from pkg/pos so callers of this package rarely
// need to import pkg/pos directly.
type Position = pos.Position

// CharSource is a random-access, position-tracking cursor over UTF-8 source
// text. Every surface parser and the lexer itself read through this type
// rather than indexing the string directly.
type CharSource struct {
	runes []rune
	pos   int
}

const eof = rune(0)

func NewCharSource(source string) *CharSource {
	return &CharSource{runes: []rune(source)}
}

// Peek returns the rune `offset` positions ahead of the cursor without
// consuming it, or the NUL sentinel rune past end of input.
func (c *CharSource) Peek(offset int) rune {
	i := c.pos + offset
	if i < 0 || i >= len(c.runes) {
		return eof
	}
	return c.runes[i]
}

func (c *CharSource) Current() rune { return c.Peek(0) }

func (c *CharSource) Eof() bool { return c.pos >= len(c.runes) }

// Pos returns the current cursor position: the rune offset plus the line
// number, counted as the newlines before the cursor.
func (c *CharSource) Pos() Position { return Position{Offset: c.pos, Line: c.line()} }

func (c *CharSource) line() int {
	n := 0
	for i := 0; i < c.pos && i < len(c.runes); i++ {
		if c.runes[i] == '\n' {
			n++
		}
	}
	return n
}

// Next consumes and returns the current rune, advancing the cursor by one.
func (c *CharSource) Next() rune {
	r := c.Current()
	if !c.Eof() {
		c.pos++
	}
	return r
}

// Drop advances the cursor by count runes, clamped to the input length.
func (c *CharSource) Drop(count int) {
	c.pos += count
	if c.pos > len(c.runes) {
		c.pos = len(c.runes)
	}
}

// Take consumes and returns the next count runes as a string.
func (c *CharSource) Take(count int) string {
	if count <= 0 {
		return ""
	}
	start := c.pos
	c.Drop(count)
	return string(c.runes[start:c.pos])
}

// TakeWhile consumes and returns a run of runes satisfying pred.
func (c *CharSource) TakeWhile(pred func(rune) bool) string {
	start := c.pos
	for !c.Eof() && pred(c.Current()) {
		c.pos++
	}
	return string(c.runes[start:c.pos])
}

// DropWhile is TakeWhile without building the intervening string.
func (c *CharSource) DropWhile(pred func(rune) bool) {
	for !c.Eof() && pred(c.Current()) {
		c.pos++
	}
}

// Test reports whether the upcoming runes equal s exactly.
func (c *CharSource) Test(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range []rune(s) {
		if c.Peek(i) != r {
			return false
		}
	}
	return true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
