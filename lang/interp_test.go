package lang

import (
	"testing"

	"github.com/ardnew/livexpr/event"
	"github.com/ardnew/livexpr/scope"
)

func TestInterpolated_RendersChangedFragments(t *testing.T) {
	t.Parallel()

	s, err := NewInterpolated("Hello {{ name }}, {{ surname }}!")
	if err != nil {
		t.Fatalf("NewInterpolated: %v", err)
	}

	ctx := scope.New(nil, nil)
	s.Bind(ctx)

	if got := s.Value(); got != "Hello , !" {
		t.Errorf("Value with unset names = %q, want %q", got, "Hello , !")
	}

	count := 0
	s.Events().Sub(event.ChannelChange, func(*event.Message) { count++ })

	_ = ctx.Set("name", "James")
	_ = ctx.Set("surname", "Bond")

	if count != 1 {
		t.Errorf("notifications = %d, want 1", count)
	}

	if got := s.Value(); got != "Hello James, Bond!" {
		t.Errorf("Value = %q, want %q", got, "Hello James, Bond!")
	}

	_ = ctx.Set("name", "Jim")

	if count != 2 {
		t.Errorf("notifications = %d, want 2", count)
	}

	if got := s.Value(); got != "Hello Jim, Bond!" {
		t.Errorf("Value = %q, want %q", got, "Hello Jim, Bond!")
	}
}

func TestInterpolated_Markers(t *testing.T) {
	t.Parallel()

	s, err := NewInterpolated("<% 1 + 2 %>!", WithMarkers("<%", "%>"))
	if err != nil {
		t.Fatalf("NewInterpolated: %v", err)
	}

	if !s.IsConst() {
		t.Error("IsConst = false for a constant template")
	}

	if got := s.Value(); got != "3!" {
		t.Errorf("Value = %q, want %q", got, "3!")
	}

	if got := s.String(); got != "<% 1 + 2 %>!" {
		t.Errorf("String = %q", got)
	}

	if got := s.Expr(0).String(); got != "1 + 2" {
		t.Errorf("Expr(0) = %q, want %q", got, "1 + 2")
	}
}

func TestInterpolated_Stops(t *testing.T) {
	t.Parallel()

	s, err := NewInterpolated("a {{ x }} {% end %}", WithStops("{%"))
	if err != nil {
		t.Fatalf("NewInterpolated: %v", err)
	}

	if got := s.Source(); got != "a {{ x }} " {
		t.Errorf("Source = %q", got)
	}

	if got := len(s.Fragments()); got != 3 {
		t.Errorf("fragments = %d, want 3", got)
	}
}

func TestInterpolated_RStrip(t *testing.T) {
	t.Parallel()

	s, err := NewInterpolated("a {{ x }} b  \n")
	if err != nil {
		t.Fatalf("NewInterpolated: %v", err)
	}

	if got := s.RStrip().String(); got != "a {{ x }} b" {
		t.Errorf("RStrip = %q, want %q", got, "a {{ x }} b")
	}

	s, _ = NewInterpolated("a {{ x }}\t\n")

	r := s.RStrip()
	if got := r.String(); got != "a {{ x }}" {
		t.Errorf("RStrip = %q, want %q", got, "a {{ x }}")
	}

	if len(r.Fragments()) != 2 {
		t.Errorf("blank trailing fragment kept: %d fragments", len(r.Fragments()))
	}
}

func TestInterpolated_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	s, err := NewInterpolated("{{ n * 2 }}")
	if err != nil {
		t.Fatalf("NewInterpolated: %v", err)
	}

	one := scope.New(map[string]any{"n": 1}, nil)
	two := scope.New(map[string]any{"n": 5}, nil)

	c := s.Clone()
	s.Bind(one)
	c.Bind(two)

	if s.Value() != "2" || c.Value() != "10" {
		t.Fatalf("Value = %q, %q; want 2, 10", s.Value(), c.Value())
	}

	_ = one.Set("n", 3)

	if c.Dirty() {
		t.Error("clone is dirty after a change to the original's context")
	}

	if s.Value() != "6" {
		t.Errorf("Value = %q, want 6", s.Value())
	}

	c.Unbind()

	if c.Context() != nil || c.Value() != "" {
		t.Errorf("unbound clone renders %q", c.Value())
	}
}
