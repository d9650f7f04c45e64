package repl

import (
	"errors"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/ardnew/livexpr/builtin"
	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/scope"
)

func newTestSession(vars map[string]any) *Session {
	return NewSession(scope.New(vars, builtin.Scope()))
}

// run evaluates each input in order and fails on the first error.
func run(t *testing.T, s *Session, inputs ...string) string {
	t.Helper()

	var out string

	for _, in := range inputs {
		var err error

		out, err = s.Eval(in)
		if err != nil {
			t.Fatalf("Eval(%q): %v", in, err)
		}
	}

	return out
}

func TestSplitAssignment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		lhs    string
		rhs    string
		wantOK bool
	}{
		{"x = 1", "x", "1", true},
		{"xs[0]=2", "xs[0]", "2", true},
		{"x == 1", "", "", false},
		{"x <= 1", "", "", false},
		{"x != 1", "", "", false},
		{"a >= b == c", "", "", false},
		{"f(k=1)", "f(k", "1)", true},
		{"x =", "x", "", false},
		{"= 1", "", "1", false},
		{"plain", "", "", false},
	}

	for _, tt := range tests {
		lhs, rhs, ok := splitAssignment(tt.input)
		if lhs != tt.lhs || rhs != tt.rhs || ok != tt.wantOK {
			t.Errorf("splitAssignment(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.input, lhs, rhs, ok, tt.lhs, tt.rhs, tt.wantOK)
		}
	}
}

func TestSession_Eval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		inputs []string
		want   string
	}{
		{"expression", []string{"1 + 2 * 3"}, "7"},
		{"assignment", []string{"x = 1 + 2"}, "x = 3"},
		{"read back", []string{"x = 4", "x * 2"}, "8"},
		{"comparison is not assignment", []string{"x = 4", "x == 4"}, "True"},
		{"string repr", []string{"name = 'go'", "name"}, "'go'"},
		{"index assignment", []string{"xs = [1, 2, 3]", "xs[1] = 20"}, "xs[1] = 20"},
		{"index read back", []string{"xs = [1, 2, 3]", "xs[1] = 20", "xs"}, "[1, 20, 3]"},
		{"builtin", []string{"path.cat('a', 'b')"}, "'a/b'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := run(t, newTestSession(nil), tt.inputs...); got != tt.want {
				t.Errorf("Eval(%q) = %q, want %q", tt.inputs[len(tt.inputs)-1], got, tt.want)
			}
		})
	}
}

func TestSession_EvalDictKey(t *testing.T) {
	t.Parallel()

	s := newTestSession(map[string]any{"d": map[string]any{"a": 1}})

	if got := run(t, s, "d['b'] = 2", "d['a'] + d['b']"); got != "3" {
		t.Errorf("d['a'] + d['b'] = %q, want %q", got, "3")
	}
}

func TestSession_EvalErrors(t *testing.T) {
	t.Parallel()

	s := newTestSession(nil)

	if _, err := s.Eval("undefined_name + 1"); err == nil {
		t.Error("Eval of an undefined name succeeded")
	}

	if _, err := s.Eval("1 +"); err == nil {
		t.Error("Eval of a truncated expression succeeded")
	} else {
		var lerr *lang.Error
		if !errors.As(err, &lerr) {
			t.Errorf("Eval syntax error = %T, want *lang.Error", err)
		}
	}
}

func TestSession_Watch(t *testing.T) {
	t.Parallel()

	s := newTestSession(map[string]any{"name": "World"})
	defer s.Close()

	got, err := s.Watch("Hello {{name}}!")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if want := "[1] Hello World!"; got != want {
		t.Errorf("Watch = %q, want %q", got, want)
	}

	if u := s.Updates(); len(u) != 0 {
		t.Errorf("Updates before any change = %q, want none", u)
	}

	run(t, s, "other = 1")

	if u := s.Updates(); len(u) != 0 {
		t.Errorf("Updates after unrelated change = %q, want none", u)
	}

	run(t, s, "name = 'Go'")

	if diff := pretty.Compare(s.Updates(), []string{"[1] Hello Go!"}); diff != "" {
		t.Errorf("Updates diff (-got +want):\n%s", diff)
	}

	if u := s.Updates(); len(u) != 0 {
		t.Errorf("Updates reported twice: %q", u)
	}

	if _, err := s.Watch("{{name + '!'}}"); err != nil {
		t.Fatalf("second Watch: %v", err)
	}

	if diff := pretty.Compare(s.Watches(), []string{
		"[1] Hello {{ name }}!  →  Hello Go!",
		"[2] {{ name + '!' }}  →  Go!",
	}); diff != "" {
		t.Errorf("Watches diff (-got +want):\n%s", diff)
	}

	if err := s.Unwatch(1); err != nil {
		t.Fatalf("Unwatch(1): %v", err)
	}

	run(t, s, "name = 'Gopher'")

	if diff := pretty.Compare(s.Updates(), []string{"[2] Gopher!"}); diff != "" {
		t.Errorf("Updates after Unwatch diff (-got +want):\n%s", diff)
	}

	if err := s.Unwatch(1); !errors.Is(err, ErrNoWatch) {
		t.Errorf("Unwatch of a stopped watch: err = %v, want %v", err, ErrNoWatch)
	}
}

func TestSession_WatchSyntaxError(t *testing.T) {
	t.Parallel()

	s := newTestSession(nil)

	if _, err := s.Watch("broken {{1 +}}"); err == nil {
		t.Error("Watch of an invalid template succeeded")
	}

	if got := s.Watches(); len(got) != 0 {
		t.Errorf("Watches = %q, want none", got)
	}
}

func TestSession_Solve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		vars map[string]any
		args string
		want []string
	}{
		{"sum", map[string]any{"x": 0}, "x + 10 for x = 30", []string{"x = 20"}},
		{"unset target", nil, "2 * n for n = 8", []string{"n = 4"}},
		{"string suffix", map[string]any{"base": ""}, "base + '.txt' for base = 'a.txt'", []string{"base = 'a'"}},
		{"unchanged", map[string]any{"x": 5}, "x for x = 5", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := newTestSession(tt.vars).Solve(tt.args)
			if err != nil {
				t.Fatalf("Solve(%q): %v", tt.args, err)
			}

			if diff := pretty.Compare(got, tt.want); diff != "" {
				t.Errorf("Solve(%q) diff (-got +want):\n%s", tt.args, diff)
			}
		})
	}
}

func TestSession_SolveUsage(t *testing.T) {
	t.Parallel()

	s := newTestSession(nil)

	for _, args := range []string{"", "x + 1", "x + 1 for x"} {
		if _, err := s.Solve(args); !errors.Is(err, ErrUsage) {
			t.Errorf("Solve(%q): err = %v, want %v", args, err, ErrUsage)
		}
	}
}

func TestSession_Vars(t *testing.T) {
	t.Parallel()

	s := newTestSession(map[string]any{"b": 2})
	run(t, s, "a = 'one'", "c = [1]")

	want := []string{"a = 'one'", "b = 2", "c = [1]"}
	if diff := pretty.Compare(s.Vars(), want); diff != "" {
		t.Errorf("Vars diff (-got +want):\n%s", diff)
	}
}

func TestSession_AST(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
	}{
		{"x", "x"},
		{"1 + x * 2", "(+ 1 (* x 2))"},
		{"-x", "(- x)"},
		{"a.b", "(.b a)"},
	}

	s := newTestSession(nil)

	for _, tt := range tests {
		got, err := s.AST(tt.src)
		if err != nil {
			t.Errorf("AST(%q): %v", tt.src, err)

			continue
		}

		if got != tt.want {
			t.Errorf("AST(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}

	if _, err := s.AST("(1"); err == nil {
		t.Error("AST of unbalanced input succeeded")
	}
}
