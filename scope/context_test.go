package scope

import (
	"errors"
	"slices"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/kylelemons/godebug/pretty"

	"github.com/ardnew/livexpr/event"
)

func TestContext_GetReadsThroughBase(t *testing.T) {
	base := New(map[string]any{"a": 1, "b": 2}, nil)
	ctx := New(map[string]any{"b": 20}, base)

	tests := []struct {
		name string
		want any
		ok   bool
	}{
		{"a", 1, true},
		{"b", 20, true},
		{"c", nil, false},
	}

	for _, tt := range tests {
		got, ok := ctx.Get(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Get(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}

	if err := ctx.Set("a", 10); err != nil {
		t.Fatal(err)
	}

	if v, _ := base.Get("a"); v != 1 {
		t.Errorf("write reached base: a = %v", v)
	}

	names := slices.Collect(ctx.Names())
	if diff := pretty.Compare([]string{"a", "b"}, names); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}
}

func TestContext_Immutable(t *testing.T) {
	ctx := New(nil, nil)

	if err := ctx.SetImmutable("pi", 3.14); err != nil {
		t.Fatal(err)
	}

	err := ctx.Set("pi", 3)
	if !errors.Is(err, ErrImmutable) {
		t.Fatalf("Set(pi) error = %v, want ErrImmutable", err)
	}

	if err := ctx.Delete("pi"); !errors.Is(err, ErrImmutable) {
		t.Errorf("Delete(pi) error = %v, want ErrImmutable", err)
	}

	child := New(nil, ctx)
	if !child.Immutable("pi") {
		t.Error("child does not see immutable base binding")
	}

	if err := child.Set("pi", 3); err != nil {
		t.Errorf("shadowing immutable base binding failed: %v", err)
	}

	if child.Immutable("pi") {
		t.Error("shadowing binding reported immutable")
	}

	if err := ctx.Freeze("missing"); !errors.Is(err, ErrUndefined) {
		t.Errorf("Freeze(missing) error = %v", err)
	}

	if got := ctx.ImmutableNames(); !slices.Equal(got, []string{"pi"}) {
		t.Errorf("ImmutableNames = %v", got)
	}
}

func TestContext_SetWrapsContainers(t *testing.T) {
	ctx := New(map[string]any{
		"list": []any{1, 2},
		"dict": map[string]any{"k": "v"},
	}, nil)

	l, _ := ctx.Get("list")
	if _, ok := l.(*List); !ok {
		t.Errorf("list stored as %T", l)
	}

	d, _ := ctx.Get("dict")
	if _, ok := d.(*Dict); !ok {
		t.Errorf("dict stored as %T", d)
	}

	want := map[string]any{
		"list": []any{1, 2},
		"dict": map[string]any{"k": "v"},
	}

	if diff := pretty.Compare(want, ctx.Map()); diff != "" {
		t.Errorf("Map (-want +got):\n%s", diff)
	}
}

func TestContext_WatchExactness(t *testing.T) {
	base := New(map[string]any{"x": 1}, nil)
	ctx := New(nil, base)

	var got []event.Change

	w := ctx.Watch("x", func(c event.Change) { got = append(got, c) })

	_ = ctx.Set("y", 1)
	_ = base.Set("x", 2)

	if len(got) != 1 || got[0].Value != 2 {
		t.Fatalf("changes after base write = %s", spew.Sdump(got))
	}

	_ = ctx.Set("x", 3)

	// x is shadowed now: base writes are invisible.
	_ = base.Set("x", 4)

	if len(got) != 2 || got[1].Value != 3 {
		t.Fatalf("changes after shadowing = %s", spew.Sdump(got))
	}

	_ = ctx.Delete("x")

	if len(got) != 3 || got[2].Op != event.OpDelete || got[2].Value != 4 {
		t.Fatalf("changes after delete = %s", spew.Sdump(got))
	}

	w.Cancel()
	_ = ctx.Set("x", 5)

	if len(got) != 3 {
		t.Errorf("watch fired after Cancel")
	}

	if n := base.Events().Subscribers(KeyChannel("x")); n != 0 {
		t.Errorf("base still has %d subscribers", n)
	}
}

func TestContext_SaveShadowRestore(t *testing.T) {
	ctx := New(map[string]any{"i": "outer"}, nil)

	var emits int

	ctx.Events().Sub(event.ChannelChange, func(*event.Message) { emits++ })

	ctx.Save("i")
	ctx.Shadow("i", 1)

	ctx.Save("i")
	ctx.Shadow("i", 2)

	if v, _ := ctx.Get("i"); v != 2 {
		t.Errorf("i = %v, want 2", v)
	}

	for _, want := range []any{1, "outer"} {
		if err := ctx.Restore("i"); err != nil {
			t.Fatal(err)
		}

		if v, _ := ctx.Get("i"); v != want {
			t.Errorf("i = %v, want %v", v, want)
		}
	}

	ctx.Save("j")
	ctx.Shadow("j", true)

	if err := ctx.Restore("j"); err != nil {
		t.Fatal(err)
	}

	if ctx.Has("j") {
		t.Error("restore of absent binding left j defined")
	}

	if err := ctx.Restore("j"); !errors.Is(err, ErrNotSaved) {
		t.Errorf("unbalanced Restore error = %v", err)
	}

	if emits != 0 {
		t.Errorf("shadowing published %d changes", emits)
	}
}

func TestContext_UpdateAccumulates(t *testing.T) {
	ctx := New(nil, nil)
	_ = ctx.SetImmutable("a", 1)
	_ = ctx.SetImmutable("b", 2)

	err := ctx.Update(map[string]any{"a": 0, "b": 0, "c": 3})
	if err == nil {
		t.Fatal("Update succeeded over immutable names")
	}

	if !errors.Is(err, ErrImmutable) {
		t.Errorf("Update error = %v", err)
	}

	if v, _ := ctx.Get("c"); v != 3 {
		t.Errorf("c = %v, want 3", v)
	}
}
