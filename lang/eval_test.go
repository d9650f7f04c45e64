package lang

import (
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/expr-lang/expr"
	"github.com/kylelemons/godebug/pretty"

	"github.com/ardnew/livexpr/scope"
)

type point struct {
	X, Y int
}

func (p *point) Sum() int { return p.X + p.Y }

// evalString parses src, binds it to a fresh context holding vars and
// evaluates it.
func evalString(t *testing.T, src string, vars map[string]any) (any, error) {
	t.Helper()

	n, _, err := Parse(src, WithoutCache())
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}

	n.Bind(scope.New(vars, nil))

	return n.Eval(false)
}

func TestEval(t *testing.T) {
	t.Parallel()

	vars := func() map[string]any {
		return map[string]any{
			"x":  10,
			"xs": []any{1, 2, 3},
			"d":  map[string]any{"k": 1},
			"p":  &point{X: 1, Y: 2},
			"s":  "hello",
		}
	}

	tests := []struct {
		name string
		src  string
		want any
	}{
		{"precedence", "1+4*4+x", 27},
		{"parentheses", "(1+4)*4+x", 30},
		{"negative literal", "-1", -1},
		{"power right assoc", "2**3**2", 512},
		{"power grouped", "(2**3)**2", 64},
		{"power over negation", "-2**2", -4},
		{"negated base", "(-2)**2", 4},
		{"negative exponent", "2**-1", 0.5},
		{"true division", "7/2", 3.5},
		{"exact division is float", "6/3", 2.0},
		{"floor division", "7//2", 3},
		{"floor division negative", "-7//2", -4},
		{"floor division negative divisor", "7//-2", -4},
		{"float floor division", "7.5//2", 3.0},
		{"modulo sign follows divisor", "-7 % 3", 2},
		{"modulo negative divisor", "7 % -3", -2},
		{"concatenation", "'ab' + 'cd'", "abcd"},
		{"string repeat", "'ab' * 3", "ababab"},
		{"list concatenation", "[1, 2] + [3]", []any{1, 2, 3}},
		{"list repeat", "[0] * 3", []any{0, 0, 0}},
		{"and or", "1 < 2 and 'x' or 'y'", "x"},
		{"or short circuit", "0 or 'z'", "z"},
		{"and short circuit", "None and undefined", nil},
		{"not empty", "not ''", true},
		{"not number", "not 3", false},
		{"in list", "2 in [1, 2]", true},
		{"in string", "'ell' in s", true},
		{"in dict", "'k' in d", true},
		{"not in", "4 not in xs", true},
		{"is", "None is None", true},
		{"is not", "x is not None", true},
		{"list equality", "[1, 2] == [1, 2]", true},
		{"numeric equality", "1 == 1.0", true},
		{"string order", "'a' < 'b'", true},
		{"list order", "[1, 2] < [1, 3]", true},
		{"negative index", "xs[-1]", 3},
		{"slice", "xs[1:]", []any{2, 3}},
		{"reverse", "xs[::-1]", []any{3, 2, 1}},
		{"string slice", "s[1:3]", "el"},
		{"string index", "s[-1]", "o"},
		{"dict index", "d['k']", 1},
		{"len", "len(xs)", 3},
		{"len runes", "len('héllo')", 5},
		{"str float", "str(1.0)", "1.0"},
		{"str None", "str(None)", "None"},
		{"str list", "str([1, 'a'])", "[1, 'a']"},
		{"int string", "int('42')", 42},
		{"int float", "int(3.9)", 3},
		{"comprehension", "[v * 2 for v in xs if v > 1]", []any{4, 6}},
		{"comprehension over string", "[c.upper() for c in 'ab']", []any{"A", "B"}},
		{"split", "'a,b'.split(',')", []any{"a", "b"}},
		{"join", "'-'.join(['a', 'b'])", "a-b"},
		{"strip", "' x '.strip()", "x"},
		{"upper", "s.upper()", "HELLO"},
		{"startswith", "s.startswith('he')", true},
		{"replace", "'aXa'.replace('a', 'b')", "bXb"},
		{"dict attribute", "d.k", 1},
		{"struct fields", "p.x + p.Y", 3},
		{"struct method", "p.sum()", 3},
		{"reserved names", "True and not False", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := evalString(t, tt.src, vars())
			if err != nil {
				t.Fatalf("Eval(%q): %v", tt.src, err)
			}

			if !equal(got, tt.want) || typeName(got) != typeName(tt.want) {
				t.Errorf("Eval(%q) = %s, want %s", tt.src, spew.Sdump(got), spew.Sdump(tt.want))
			}
		})
	}
}

func TestEval_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want *Error
	}{
		{"1 + 'a'", ErrType},
		{"y", ErrUndefined},
		{"xs[5]", ErrIndex},
		{"xs['a']", ErrIndex},
		{"3()", ErrNotCallable},
		{"len(1, 2)", ErrArgument},
		{"1 / 0", ErrDivisionByZero},
		{"5 % 0", ErrDivisionByZero},
		{"xs.nope", ErrAttribute},
		{"xs[::0]", ErrIndex},
		{"[v for v in 3]", ErrType},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			_, err := evalString(t, tt.src, map[string]any{"xs": []any{1}})
			if !errors.Is(err, tt.want) {
				t.Fatalf("Eval(%q) error = %v, want %v", tt.src, err, tt.want)
			}

			if !IsEvaluation(err) {
				t.Errorf("IsEvaluation(%v) = false", err)
			}

			var e *Error
			if errors.As(err, &e) && (e.Pos() < 0 || e.Source() != tt.src) {
				t.Errorf("error %v is not located in %q", err, tt.src)
			}
		})
	}
}

func TestEval_Unbound(t *testing.T) {
	t.Parallel()

	n := MustParse("x + 1", WithoutCache())

	if _, err := n.Eval(false); !errors.Is(err, ErrUnbound) {
		t.Errorf("Eval unbound error = %v, want ErrUnbound", err)
	}

	// Constant trees need no context.
	if v, err := MustParse("1 + 2", WithoutCache()).Eval(false); err != nil || v != 3 {
		t.Errorf("Eval(1 + 2) = %v, %v", v, err)
	}
}

func TestEvalIn_LeavesCache(t *testing.T) {
	t.Parallel()

	n := MustParse("x * 2", WithoutCache())
	n.Bind(scope.New(map[string]any{"x": 1}, nil))

	if v, _ := n.Eval(false); v != 2 {
		t.Fatalf("Eval = %v, want 2", v)
	}

	v, err := n.EvalIn(scope.New(map[string]any{"x": 21}, nil))
	if err != nil || v != 42 {
		t.Errorf("EvalIn = %v, %v; want 42", v, err)
	}

	if n.Dirty() || n.Value() != 2 {
		t.Errorf("EvalIn disturbed the cache: dirty=%v value=%v", n.Dirty(), n.Value())
	}
}

func TestCallWith(t *testing.T) {
	t.Parallel()

	join := &Function{Name: "join", Fn: func(args []any, kwargs map[string]any) (any, error) {
		out := Str(kwargs["sep"])
		for _, a := range args {
			out += Str(a)
		}

		return out, nil
	}}

	n := MustParse("f('a', sep='-')", WithoutCache())
	n.Bind(scope.New(map[string]any{"f": join}, nil))

	v, err := n.(*Op).CallWith([]any{"b"}, map[string]any{"sep": "+"})
	if err != nil || v != "+ab" {
		t.Errorf("CallWith = %v, %v; want +ab", v, err)
	}
}

func TestFunctionAdapter(t *testing.T) {
	t.Parallel()

	keep := func(pred func(string) bool, items []string) []string {
		var out []string

		for _, it := range items {
			if pred(it) {
				out = append(out, it)
			}
		}

		return out
	}

	long := &Function{Name: "long", Fn: func(args []any, _ map[string]any) (any, error) {
		return len(Str(args[0])) > 1, nil
	}}

	got, err := evalString(t, "keep(long, ['a', 'bb', 'ccc'])",
		map[string]any{"keep": keep, "long": long})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}

	if diff := pretty.Compare([]string{"bb", "ccc"}, got); diff != "" {
		t.Errorf("diff (-want +got):\n%s", diff)
	}
}

// TestEval_Oracle checks the shared arithmetic and boolean subset against
// an independent evaluator.
func TestEval_Oracle(t *testing.T) {
	t.Parallel()

	env := map[string]any{"x": 10, "y": 3}

	for _, src := range []string{
		"1+4*4+x",
		"(1+4)*4+x",
		"x-y-1",
		"x*(y+2)-7",
		"x/4",
		"x/y*2",
		"-x + y",
		"(x - y) * -2",
		"x % y + 1",
		"x > y and y > 1",
		"not (x < y) or y == 2",
		"x == 10 and y != 3",
		"x + y * 2 >= 16",
	} {
		t.Run(src, func(t *testing.T) {
			t.Parallel()

			want, err := expr.Eval(src, env)
			if err != nil {
				t.Fatalf("oracle Eval(%q): %v", src, err)
			}

			got, err := evalString(t, src, env)
			if err != nil {
				t.Fatalf("Eval(%q): %v", src, err)
			}

			if !equal(got, want) {
				t.Errorf("Eval(%q) = %v, oracle = %v", src, got, want)
			}
		})
	}
}
