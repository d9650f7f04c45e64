package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles of the pretty handlers, rendered for the color
// profile of their output.
type palette struct {
	key, str, num, dur, time, null lipgloss.Style
	yes, no                        lipgloss.Style
	trace, debug, info, warn, err  lipgloss.Style
}

func newPalette(w io.Writer) *palette {
	r := lipgloss.NewRenderer(w)
	fg := func(c string) lipgloss.Style { return r.NewStyle().Foreground(lipgloss.Color(c)) }

	return &palette{
		key:   fg("8"),
		str:   fg("6"),
		num:   fg("3"),
		dur:   fg("5"),
		time:  fg("4"),
		null:  fg("8"),
		yes:   fg("2"),
		no:    fg("1"),
		trace: fg("8"),
		debug: fg("4"),
		info:  fg("2"),
		warn:  fg("3").Bold(true),
		err:   fg("1").Bold(true),
	}
}

func (p *palette) level(l slog.Level) lipgloss.Style {
	switch {
	case l >= slog.LevelError:
		return p.err
	case l >= slog.LevelWarn:
		return p.warn
	case l >= slog.LevelInfo:
		return p.info
	case l >= slog.LevelDebug:
		return p.debug
	default:
		return p.trace
	}
}

// value renders a resolved attribute value without quotes.
func (p *palette) value(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return p.str.Render(v.String())
	case slog.KindInt64:
		return p.num.Render(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		return p.num.Render(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		return p.num.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case slog.KindBool:
		if v.Bool() {
			return p.yes.Render("true")
		}

		return p.no.Render("false")
	case slog.KindDuration:
		return p.dur.Render(v.Duration().String())
	case slog.KindTime:
		return p.time.Render(v.Time().Format(time.RFC3339))
	case slog.KindAny:
		if v.Any() == nil {
			return p.null.Render("null")
		}

		if err, ok := v.Any().(error); ok {
			return p.no.Render(err.Error())
		}

		return p.str.Render(fmt.Sprint(v.Any()))
	default:
		return p.str.Render(v.String())
	}
}

// prettyHandler holds what the text and JSON handlers share: options, the
// serialized output lock, attributes added with WithAttrs, and the open
// group prefix.
type prettyHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	pal    *palette
	attrs  []slog.Attr
	groups []string
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions) prettyHandler {
	return prettyHandler{opts: *opts, mu: &sync.Mutex{}, w: w, pal: newPalette(w)}
}

func (h *prettyHandler) enabled(level slog.Level) bool {
	floor := slog.LevelInfo
	if h.opts.Level != nil {
		floor = h.opts.Level.Level()
	}

	return level >= floor
}

// builtins returns the time, level, source and message attributes of r
// after ReplaceAttr.
func (h *prettyHandler) builtins(r slog.Record) []slog.Attr {
	attrs := make([]slog.Attr, 0, 4)

	if !r.Time.IsZero() {
		attrs = append(attrs, slog.Time(slog.TimeKey, r.Time))
	}

	attrs = append(attrs, slog.Any(slog.LevelKey, r.Level))

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			attrs = append(attrs, slog.String(slog.SourceKey,
				src.File+":"+strconv.Itoa(src.Line)))
		}
	}

	attrs = append(attrs, slog.String(slog.MessageKey, r.Message))

	out := attrs[:0]

	for _, a := range attrs {
		if h.opts.ReplaceAttr != nil {
			a = h.opts.ReplaceAttr(nil, a)
		}

		if a.Key != "" {
			out = append(out, a)
		}
	}

	return out
}

// record returns every attribute of r in output order, group-qualified.
func (h *prettyHandler) record(r slog.Record) []slog.Attr {
	attrs := concat(h.builtins(r), h.attrs)

	prefix := strings.Join(h.groups, ".")

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, flatten(prefix, a)...)

		return true
	})

	return attrs
}

func (h *prettyHandler) withAttrs(attrs []slog.Attr) prettyHandler {
	c := *h
	prefix := strings.Join(h.groups, ".")

	c.attrs = concat(nil, h.attrs)
	for _, a := range attrs {
		c.attrs = append(c.attrs, flatten(prefix, a)...)
	}

	return c
}

func (h *prettyHandler) withGroup(name string) prettyHandler {
	c := *h
	if name != "" {
		c.groups = append(h.groups[:len(h.groups):len(h.groups)], name)
	}

	return c
}

func (h *prettyHandler) write(buf *bytes.Buffer) error {
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

// flatten resolves a and expands groups into dotted keys below prefix.
func flatten(prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()

	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if a.Value.Kind() != slog.KindGroup {
		if a.Key == "" {
			return nil
		}

		return []slog.Attr{{Key: key, Value: a.Value}}
	}

	var out []slog.Attr
	for _, g := range a.Value.Group() {
		out = append(out, flatten(key, g)...)
	}

	return out
}

func concat(a, b []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(a)+len(b))

	return append(append(out, a...), b...)
}

// prettyTextHandler writes one styled key=value line per record.
type prettyTextHandler struct{ prettyHandler }

func newPrettyTextHandler(w io.Writer, opts *slog.HandlerOptions) *prettyTextHandler {
	return &prettyTextHandler{newPrettyHandler(w, opts)}
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.enabled(level)
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	for i, a := range h.record(r) {
		if i > 0 {
			buf.WriteByte(' ')
		}

		buf.WriteString(h.pal.key.Render(a.Key))
		buf.WriteByte('=')

		if a.Key == slog.LevelKey {
			buf.WriteString(h.pal.level(r.Level).Render(a.Value.String()))
		} else {
			buf.WriteString(h.pal.value(a.Value))
		}
	}

	return h.write(buf)
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyTextHandler{h.withAttrs(attrs)}
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	return &prettyTextHandler{h.withGroup(name)}
}

// prettyJSONHandler writes one styled, indented object per record.
// Nested groups are flattened into dotted keys.
type prettyJSONHandler struct{ prettyHandler }

func newPrettyJSONHandler(w io.Writer, opts *slog.HandlerOptions) *prettyJSONHandler {
	return &prettyJSONHandler{newPrettyHandler(w, opts)}
}

func (h *prettyJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.enabled(level)
}

func (h *prettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)
	buf.WriteString("{")

	for i, a := range h.record(r) {
		if i > 0 {
			buf.WriteByte(',')
		}

		buf.WriteString("\n  ")
		buf.WriteString(h.pal.key.Render(a.Key))
		buf.WriteString(": ")

		if a.Key == slog.LevelKey {
			buf.WriteString(h.pal.level(r.Level).Render(a.Value.String()))
		} else {
			buf.WriteString(h.pal.value(a.Value))
		}
	}

	buf.WriteString("\n}")

	return h.write(buf)
}

func (h *prettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyJSONHandler{h.withAttrs(attrs)}
}

func (h *prettyJSONHandler) WithGroup(name string) slog.Handler {
	return &prettyJSONHandler{h.withGroup(name)}
}
