package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind classifies an [Error].
type Kind uint8

const (
	KindEvaluation Kind = iota // evaluation
	KindSyntax                 // syntax
	KindNoSolution             // no solution
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindNoSolution:
		return "no solution"
	default:
		return "evaluation"
	}
}

// Syntax errors are returned by the tokenizer and parser.
var (
	ErrUnterminatedString = newError(KindSyntax, "unterminated string")
	ErrUnexpectedToken    = newError(KindSyntax, "unexpected token")
	ErrUnbalanced         = newError(KindSyntax, "unbalanced parenthesis or bracket")
	ErrMissingOperand     = newError(KindSyntax, "not enough operands for operator")
	ErrKeywordArgument    = newError(KindSyntax, "positional argument follows keyword argument")
	ErrKeywordName        = newError(KindSyntax, "invalid keyword argument name")
	ErrKeywordRepeated    = newError(KindSyntax, "keyword argument repeated")
	ErrComprehension      = newError(KindSyntax, "invalid comprehension")
	ErrEmptyExpression    = newError(KindSyntax, "empty expression")
	ErrAttributeName      = newError(KindSyntax, "invalid attribute name")
	ErrUnterminatedMarker = newError(KindSyntax, "missing end marker")
	ErrNumber             = newError(KindSyntax, "invalid number")
)

// ErrNoSolution is returned when an expression cannot be inverted.
var ErrNoSolution = newError(KindNoSolution, "no solution")

// Evaluation errors are returned by [Node.Eval].
var (
	ErrUndefined      = newError(KindEvaluation, "undefined name")
	ErrAttribute      = newError(KindEvaluation, "no such attribute")
	ErrIndex          = newError(KindEvaluation, "bad index")
	ErrType           = newError(KindEvaluation, "unsupported operand type")
	ErrNotCallable    = newError(KindEvaluation, "value is not callable")
	ErrArgument       = newError(KindEvaluation, "bad arguments")
	ErrDivisionByZero = newError(KindEvaluation, "division by zero")
	ErrUnbound        = newError(KindEvaluation, "expression is not bound to a context")
	ErrAssign         = newError(KindEvaluation, "cannot assign")
)

// Error is the error type of package lang.
// Besides a message, a wrapped cause, and structured attributes, it records
// the source text and byte offset it refers to so that callers can render a
// caret-pointed snippet with [Error.Snippet].
type Error struct {
	msg   string
	err   error
	src   string
	attrs []slog.Attr
	pos   int
	kind  Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg, pos: -1}
}

// NewError creates an evaluation Error with a message.
func NewError(msg string) *Error { return newError(KindEvaluation, msg) }

// WrapError returns err if it is an *Error, or wraps it in an evaluation
// Error otherwise.
func WrapError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return &Error{err: err, pos: -1}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	msg := strings.Join(part, ": ")

	if e.pos >= 0 && e.src != "" {
		msg += " (at " + e.Location().String() + ")"
	}

	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.err == nil && t.src == "" &&
		t.kind == e.kind && t.msg == e.msg
}

// Kind returns the error classification.
func (e *Error) Kind() Kind { return e.kind }

// Source returns the text the error refers to.
func (e *Error) Source() string { return e.src }

// Pos returns the byte offset into [Error.Source], or -1.
func (e *Error) Pos() int { return e.pos }

// LogValue implements slog.LogValuer.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+5)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	attrs = append(attrs, slog.String("kind", e.kind.String()))

	if e.src != "" {
		attrs = append(attrs, slog.String("source", e.src))

		if e.pos >= 0 {
			attrs = append(attrs, slog.String("at", e.Location().String()))
		}
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.err = err

	return &c
}

// With adds attributes to a copy of the error.
func (e *Error) With(attrs ...slog.Attr) *Error {
	c := *e
	c.attrs = make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(c.attrs, e.attrs)
	copy(c.attrs[len(e.attrs):], attrs)

	return &c
}

// At returns a copy of the error located at byte offset pos of src.
func (e *Error) At(src string, pos int) *Error {
	c := *e
	c.src, c.pos = src, pos

	return &c
}

// Location returns the line and column of the error.
func (e *Error) Location() Location { return Locate(e.src, e.pos) }

// Snippet renders the source line holding the error followed by a caret
// under the offending column. It returns "" for errors without a position.
func (e *Error) Snippet() string {
	if e.pos < 0 || e.src == "" {
		return ""
	}

	return e.Location().Context(1)
}

// IsSyntax reports whether err is or wraps a syntax [Error].
func IsSyntax(err error) bool { return hasKind(err, KindSyntax) }

// IsNoSolution reports whether err is or wraps a no-solution [Error].
func IsNoSolution(err error) bool { return hasKind(err, KindNoSolution) }

// IsEvaluation reports whether err is or wraps an evaluation [Error].
func IsEvaluation(err error) bool { return hasKind(err, KindEvaluation) }

func hasKind(err error, kind Kind) bool {
	var e *Error

	return errors.As(err, &e) && e.kind == kind
}

// Location is a position in source text.
type Location struct {
	Source string
	// Pos is a byte offset. Line and Column are 1-based; Column counts runes.
	Pos, Line, Column int
}

// Locate converts byte offset pos of src into a [Location].
// Offsets past the end of src are clamped to it.
func Locate(src string, pos int) Location {
	pos = max(0, min(pos, len(src)))

	line := 1 + strings.Count(src[:pos], "\n")
	start := strings.LastIndexByte(src[:pos], '\n') + 1

	return Location{
		Source: src,
		Pos:    pos,
		Line:   line,
		Column: utf8.RuneCountInString(src[start:pos]) + 1,
	}
}

func (l Location) String() string {
	return strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.Column)
}

// Context renders up to n lines of source ending with the located line,
// each prefixed by its number, then a caret under the located column.
func (l Location) Context(n int) string {
	lines := strings.Split(l.Source, "\n")
	first := max(1, l.Line-n+1)
	width := len(strconv.Itoa(l.Line))

	var b strings.Builder

	for num := first; num <= l.Line && num <= len(lines); num++ {
		b.WriteString("  ")
		b.WriteString(strings.Repeat(" ", width-len(strconv.Itoa(num))))
		b.WriteString(strconv.Itoa(num))
		b.WriteString(" | ")
		b.WriteString(lines[num-1])
		b.WriteByte('\n')
	}

	// 2 leading spaces + " | " separator
	b.WriteString(strings.Repeat(" ", width+5+l.Column-1))
	b.WriteString("^\n")

	return b.String()
}
