package lang

import (
	"strings"
	"unicode"

	"github.com/ardnew/livexpr/event"
	"github.com/ardnew/livexpr/scope"
)

// Default interpolation markers.
const (
	DefaultStartMarker = "{{"
	DefaultEndMarker   = "}}"
)

// InterpOption configures [NewInterpolated].
type InterpOption func(*interpOptions)

type interpOptions struct {
	start, end string
	stops      []string
}

// WithMarkers sets the markers delimiting embedded expressions.
func WithMarkers(start, end string) InterpOption {
	return func(o *interpOptions) { o.start, o.end = start, end }
}

// WithStops makes the text end before the first occurrence of any of stops
// outside an embedded expression.
func WithStops(stops ...string) InterpOption {
	return func(o *interpOptions) { o.stops = stops }
}

// Interpolated is literal text with embedded live expressions.
//
// Each fragment keeps its last rendered string. When bound, a change to a
// name read by one fragment marks only that fragment stale; the next call to
// [Interpolated.Value] re-evaluates it alone and recombines the text.
// The Interpolated publishes one [event.Change] on [event.ChannelChange] per
// transition from clean to dirty. Failing fragments render as "".
type Interpolated struct {
	event.Tracker

	ctx        *scope.Context
	src        string
	start, end string
	frags      []Node
	slots      []string
	stale      []bool
	value      string
}

// NewInterpolated parses text. With [WithStops], [Interpolated.Source]
// returns the consumed prefix of text.
func NewInterpolated(text string, opts ...InterpOption) (*Interpolated, error) {
	o := interpOptions{start: DefaultStartMarker, end: DefaultEndMarker}

	for _, opt := range opts {
		opt(&o)
	}

	src, frags, err := ParseInterpolated(text, o.start, o.end, o.stops...)
	if err != nil {
		return nil, err
	}

	return newInterpolated(src, o.start, o.end, frags), nil
}

func newInterpolated(src, start, end string, frags []Node) *Interpolated {
	s := &Interpolated{
		src:   src,
		start: start,
		end:   end,
		frags: frags,
		slots: make([]string, len(frags)),
		stale: make([]bool, len(frags)),
	}
	s.SetOwner(s)

	for i, f := range frags {
		s.stale[i] = true

		if f.base().static {
			continue
		}

		f.Events().Sub(event.ChannelChange, func(m *event.Message) {
			s.fragmentChanged(i, m)
		})
	}

	s.MarkSelf(event.Invalidate())

	return s
}

func (s *Interpolated) fragmentChanged(i int, m *event.Message) {
	if c, ok := m.Change(); ok && c.HasValue {
		s.slots[i], s.stale[i] = Str(c.Value), false
	} else {
		s.stale[i] = true
	}

	s.MarkChildren(event.Invalidate())
}

// Value returns the rendered text.
func (s *Interpolated) Value() string {
	s.Refresh(s.renderAll, s.renderStale)

	return s.value
}

func (s *Interpolated) renderAll() {
	for i := range s.stale {
		s.stale[i] = true
	}

	s.renderStale()
}

func (s *Interpolated) renderStale() {
	for i, f := range s.frags {
		if !s.stale[i] {
			continue
		}

		s.slots[i], s.stale[i] = "", false

		if v, err := f.Eval(false); err == nil {
			s.slots[i] = Str(v)
		}
	}

	s.value = strings.Join(s.slots, "")
}

// Bind binds every fragment to ctx.
func (s *Interpolated) Bind(ctx *scope.Context) {
	s.ctx = ctx

	for _, f := range s.frags {
		f.Bind(ctx)
	}

	s.MarkSelf(event.Invalidate())
}

// Unbind detaches every fragment from its context.
func (s *Interpolated) Unbind() { s.Bind(nil) }

// Context returns the bound context, or nil.
func (s *Interpolated) Context() *scope.Context { return s.ctx }

// Clone returns an unbound copy.
func (s *Interpolated) Clone() *Interpolated {
	return newInterpolated(s.src, s.start, s.end, cloneAll(s.frags))
}

// IsConst reports whether the text is independent of any context.
func (s *Interpolated) IsConst() bool {
	for _, f := range s.frags {
		if !f.IsConst() {
			return false
		}
	}

	return true
}

// Source returns the text the Interpolated was parsed from.
func (s *Interpolated) Source() string { return s.src }

// Fragments returns the literal and str(expr) fragment nodes in order.
func (s *Interpolated) Fragments() []Node { return s.frags }

// Expr returns the embedded expression of fragment i, or the fragment itself
// if it is literal text.
func (s *Interpolated) Expr(i int) Node {
	if o, ok := s.frags[i].(*Op); ok && o.op == "()" {
		if a, ok := o.right.(*Args); ok && len(a.items) == 1 {
			return a.items[0]
		}
	}

	return s.frags[i]
}

// Events returns the bus on which changes are published.
func (s *Interpolated) Events() *event.Bus { return &s.Bus }

// RStrip returns an unbound copy whose trailing literal text has its
// trailing white space removed.
func (s *Interpolated) RStrip() *Interpolated {
	frags := cloneAll(s.frags)

	if n := len(frags); n > 0 {
		if c, ok := frags[n-1].(*Const); ok {
			if str, ok := c.val.(string); ok {
				str = strings.TrimRightFunc(str, unicode.IsSpace)
				if str == "" {
					frags = frags[:n-1]
				} else {
					frags[n-1] = newConst(str, c.src, c.pos)
				}
			}
		}
	}

	return newInterpolated(s.src, s.start, s.end, frags)
}

// String renders the fragments back into template text.
func (s *Interpolated) String() string {
	var b strings.Builder

	for i, f := range s.frags {
		if c, ok := f.(*Const); ok {
			if str, ok := c.val.(string); ok {
				b.WriteString(str)

				continue
			}
		}

		b.WriteString(s.start)
		b.WriteString(" ")
		b.WriteString(s.Expr(i).String())
		b.WriteString(" ")
		b.WriteString(s.end)
	}

	return b.String()
}
