package cmd

import (
	"log/slog"
	"slices"
)

// Error is a command failure carrying structured attributes for logging.
// The package-level Err values are sentinels: derive a reportable error with
// With and Wrap, and match it back with [errors.Is].
type Error struct {
	msg   string
	err   error
	attrs []slog.Attr
}

// NewError returns an Error with the given message.
func NewError(msg string) *Error { return &Error{msg: msg} }

func (e *Error) Error() string {
	switch {
	case e.err == nil:
		return e.msg
	case e.msg == "":
		return e.err.Error()
	default:
		return e.msg + ": " + e.err.Error()
	}
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.err == nil && len(t.attrs) == 0 && t.msg == e.msg
}

// LogValue groups the message, the cause and every attribute.
func (e *Error) LogValue() slog.Value {
	var head []slog.Attr

	if e.msg != "" {
		head = append(head, slog.String("error", e.msg))
	}

	if e.err != nil {
		head = append(head, slog.Any("cause", e.err))
	}

	return slog.GroupValue(slices.Concat(head, e.attrs)...)
}

// Wrap returns a copy of e caused by err.
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err, attrs: e.attrs}
}

// With returns a copy of e with attrs appended.
func (e *Error) With(attrs ...slog.Attr) *Error {
	return &Error{msg: e.msg, err: e.err, attrs: slices.Concat(e.attrs, attrs)}
}

var (
	ErrJSONMarshal = NewError("marshal JSON")
	ErrYAMLMarshal = NewError("marshal YAML")
	ErrWriteConfig = NewError("write configuration file")
	ErrFileExists  = NewError("file exists (use --force to overwrite)")
	ErrAssignment  = NewError("invalid assignment (want NAME=EXPR)")
	ErrTemplate    = NewError("read template")
	ErrWatch       = NewError("watch")
	ErrNothing     = NewError("nothing to watch (use --vars or --file)")
	ErrSyntax      = NewError("syntax errors")
	ErrSolve       = NewError("solve")
)
