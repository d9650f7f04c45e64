package repl

import (
	"log/slog"
	"strings"
)

// Error is a REPL command error with structured logging support.
type Error struct {
	msg   string
	attrs []slog.Attr
}

func newError(msg string) *Error { return &Error{msg: msg} }

func (e *Error) Error() string {
	if len(e.attrs) == 0 {
		return e.msg
	}

	parts := make([]string, len(e.attrs))
	for i, a := range e.attrs {
		parts[i] = a.String()
	}

	return e.msg + " (" + strings.Join(parts, ", ") + ")"
}

// Is matches e against the sentinel it was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && len(t.attrs) == 0 && t.msg == e.msg
}

func (e *Error) LogValue() slog.Value {
	return slog.GroupValue(append([]slog.Attr{slog.String("error", e.msg)}, e.attrs...)...)
}

// With returns a copy of e with attrs appended.
func (e *Error) With(attrs ...slog.Attr) *Error {
	return &Error{msg: e.msg, attrs: append(append([]slog.Attr(nil), e.attrs...), attrs...)}
}

// Sentinel errors.
var (
	ErrOutOfBounds    = newError("index out of range")
	ErrEditDeclined   = newError("decline edit")
	ErrNoWatch        = newError("no such watch")
	ErrUsage          = newError("usage")
	ErrUnknownCommand = newError("unknown command (try :help)")
)
