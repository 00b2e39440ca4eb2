package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Error types for each compiler stage
// ---------------------------------------------------------------------------

// LexError reports an invalid character sequence in the source.
type LexError struct {
	Msg string
	Pos Position
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// ParseErrorKind classifies parse failures.
type ParseErrorKind int

const (
	ParseUnexpectedToken ParseErrorKind = iota
	ParseUnexpectedEOF
	ParseBadStructure // a construct opened but malformed (missing segment, bad stage)
)

// ParseError reports a syntax error. Parsing aborts at the first error.
type ParseError struct {
	Kind     ParseErrorKind
	Msg      string
	Pos      Position
	Expected string // token or construct the parser wanted, if known
	Got      string // token actually seen
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Expected != "" {
		msg = fmt.Sprintf("%s (expected %s, got %s)", msg, e.Expected, e.Got)
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, msg)
}

// TypeErrorKind classifies type-check failures.
type TypeErrorKind int

const (
	TypeMismatch TypeErrorKind = iota
	TypeUndefinedName
	TypeBadArity
	TypeBadOperand
	TypeNotCallable
)

// TypeError reports a single type-check failure. The checker collects every
// failure for a unit before giving up.
type TypeError struct {
	Kind TypeErrorKind
	Msg  string
	Pos  Position
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// TypeErrors joins the collected failures of one checked unit.
type TypeErrors []*TypeError

func (e TypeErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d type errors:", len(e))
	for _, te := range e {
		sb.WriteString("\n\t")
		sb.WriteString(te.Error())
	}
	return sb.String()
}

// UnsupportedConstructError reports a source construct that a target cannot
// express. A backend raises it rather than dropping the construct.
type UnsupportedConstructError struct {
	Construct string // e.g. "ui component", "api call"
	Target    Target
	Pos       Position
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s is not supported by the %s target",
		e.Pos.Line, e.Pos.Column, e.Construct, e.Target)
}

// CompileError wraps a stage failure for callers that want to know where in
// the pipeline a compile stopped.
type CompileError struct {
	Stage string // "lex", "parse", "check", "generate"
	Err   error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
