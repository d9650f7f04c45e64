package lang

import (
	"strconv"
	"testing"

	"github.com/ardnew/livexpr/scope"
)

const benchSource = "[v * k + len(s) for v in xs if v % 2 == 0][0] + a.b"

func BenchmarkParse(b *testing.B) {
	b.ReportAllocs()

	for b.Loop() {
		if _, _, err := Parse(benchSource, WithoutCache()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParse_Cached(b *testing.B) {
	c := NewCache(DefaultCacheSize)

	b.ReportAllocs()

	for b.Loop() {
		if _, _, err := Parse(benchSource, WithCache(c)); err != nil {
			b.Fatal(err)
		}
	}
}

// benchContext returns a context holding a large list and the names read
// by benchSource.
func benchContext() *scope.Context {
	xs := make([]any, 1000)
	for i := range xs {
		xs[i] = i
	}

	return scope.New(map[string]any{
		"xs": xs,
		"k":  3,
		"s":  "bench",
		"a":  map[string]any{"b": 1},
	}, nil)
}

// BenchmarkEval_Incremental changes a name outside the comprehension so only
// the affected path is recomputed.
func BenchmarkEval_Incremental(b *testing.B) {
	ctx := benchContext()
	n := MustParse("sum + " + benchSource, WithoutCache())
	_ = ctx.Set("sum", 0)
	n.Bind(ctx)

	i := 0

	for b.Loop() {
		i++
		_ = ctx.Set("sum", i)

		if _, err := n.Eval(false); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEval_Forced(b *testing.B) {
	ctx := benchContext()
	n := MustParse("sum + " + benchSource, WithoutCache())
	_ = ctx.Set("sum", 0)
	n.Bind(ctx)

	for b.Loop() {
		if _, err := n.Eval(true); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInterpolated_Value(b *testing.B) {
	s, err := NewInterpolated("{{ a }} and {{ b * 2 }} of {{ xs[0] }}")
	if err != nil {
		b.Fatal(err)
	}

	ctx := scope.New(map[string]any{"a": 0, "b": 1, "xs": []any{"x"}}, nil)
	s.Bind(ctx)

	i := 0

	for b.Loop() {
		i++
		_ = ctx.Set("a", strconv.Itoa(i))
		_ = s.Value()
	}
}
