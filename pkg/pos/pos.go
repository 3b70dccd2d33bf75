// Package pos defines the source-position type shared by the lexer, the
// AST, and the error taxonomy, kept separate from all three so that none of
// them need to import another to describe "where in the source text".
package pos

import "fmt"

// Position locates a token, or a node derived from one, in the source text.
// The zero Position means "no single location" (used by internal errors
// raised after the AST has been rewritten away from its original text).
type Position struct {
	Offset int
	Line   int
}

func (p Position) IsZero() bool { return p.Offset == 0 && p.Line == 0 }

func (p Position) String() string { return fmt.Sprintf("line %d", p.Line+1) }
