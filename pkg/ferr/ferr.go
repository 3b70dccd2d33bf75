// Package ferr defines the fatal error taxonomy shared by every stage of the
// compiler pipeline (lexer, surface parsers, symbol table, optimizer, SSA,
// graph construction, code generation). Every stage reports failures through
// a single *Error, wrapping the underlying cause with github.com/pkg/errors
// so callers can recover the root cause with errors.Cause without chaining
// multiple errors.Unwrap calls across stage boundaries.
package ferr

import (
	"fmt"

	"github.com/pkg/errors"

	"foppl.dev/compiler/pkg/pos"
)

// Kind classifies a fatal condition. All kinds are terminal: the pipeline
// never recovers and continues after one is raised, it aborts the pass.
type Kind string

const (
	InvalidCharacter Kind = "InvalidCharacter"
	UnmatchedBracket Kind = "UnmatchedBracket"
	SyntaxError      Kind = "SyntaxError"
	TypeError        Kind = "TypeError"
	NameError        Kind = "NameError"
	UnrollLimit      Kind = "UnrollLimit"
	Internal         Kind = "Internal"
)

// Error is the concrete error type returned by every package in the pipeline.
// Pos is the zero Position when a failure has no single source location
// (e.g. an internal-consistency check in the graph builder).
type Error struct {
	Kind Kind
	Pos  pos.Position
	Msg  string
	// cause is the wrapped error, if any, preserved for errors.Cause/As/Is.
	cause error
}

func (e *Error) Error() string {
	if e.Pos.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Pos, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause implements the github.com/pkg/errors causer interface.
func (e *Error) Cause() error { return e.cause }

// New builds a position-less *Error, used for errors not anchored to a
// single point in the source (internal-consistency failures, for instance).
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// At builds a position-anchored *Error.
func At(kind Kind, pos pos.Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Wrap re-raises cause as kind, anchored at pos, preserving cause for
// unwrapping. Mirrors the teacher's fmt.Errorf("...: %w", err) stage
// boundaries, but keeps the richer Kind/Position metadata instead of
// flattening everything into a string.
func Wrap(cause error, kind Kind, pos pos.Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...), cause: errors.WithStack(cause)}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	fe, ok := err.(*Error)
	return ok && fe.Kind == kind
}
