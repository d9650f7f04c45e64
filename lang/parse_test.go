package lang

import (
	"errors"
	"testing"

	"github.com/kylelemons/godebug/pretty"
)

func TestParse_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
	}{
		{"1+4*4+x", "1 + 4 * 4 + x"},
		{"(1+4)*4+x", "(1 + 4) * 4 + x"},
		{"1-(2-3)", "1 - (2 - 3)"},
		{"(1-2)-3", "1 - 2 - 3"},
		{"2**3**2", "2 ** 3 ** 2"},
		{"(2**3)**2", "(2 ** 3) ** 2"},
		{"-5**2", "-5 ** 2"},
		{"(-5)**2", "(-5) ** 2"},
		{"-(a+b)", "-(a + b)"},
		{"not a and b", "not a and b"},
		{"not (a and b)", "not (a and b)"},
		{"a or b and c", "a or b and c"},
		{"(a or b) and c", "(a or b) and c"},
		{"a not in b", "a not in b"},
		{"a is not None", "a is not None"},
		{"a.b[0](1, k=2)", "a.b[0](1, k=2)"},
		{"(a+b).c", "(a + b).c"},
		{"x[1:]", "x[1:]"},
		{"x[::-1]", "x[::-1]"},
		{"x[a:b:2]", "x[a:b:2]"},
		{"[x*2 for x in xs if x>1]", "[x * 2 for x in xs if x > 1]"},
		{"[]", "[]"},
		{"[1, 2,]", "[1, 2]"},
		{"f()", "f()"},
		{"f(a,)", "f(a)"},
		{`'a' + "b"`, "'a' + 'b'"},
		{"1.5 // 2 % 3", "1.5 // 2 % 3"},
		{"  x  ", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			n, stop, err := Parse(tt.src, WithoutCache())
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.src, err)
			}

			if stop != len(tt.src) {
				t.Errorf("stop = %d, want %d", stop, len(tt.src))
			}

			if got := n.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}

			// The rendering parses back to an equivalent tree.
			back, _, err := Parse(n.String(), WithoutCache())
			if err != nil {
				t.Fatalf("Parse(%q): %v", n.String(), err)
			}

			if !back.Equiv(n) {
				t.Errorf("reparse of %q is not equivalent", n.String())
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want *Error
		pos  int
	}{
		{"(10+30+1+10*/)+30", ErrMissingOperand, 12},
		{"(1+2", ErrUnbalanced, 0},
		{"1+2)", ErrUnbalanced, 3},
		{"a b", ErrUnexpectedToken, 2},
		{"a ! b", ErrUnexpectedToken, 2},
		{"", ErrEmptyExpression, 0},
		{"   ", ErrEmptyExpression, 3},
		{"()", ErrEmptyExpression, 0},
		{"1 +", ErrMissingOperand, 2},
		{"not", ErrMissingOperand, 0},
		{"f(a=1, 2)", ErrKeywordArgument, 7},
		{"f(1=2)", ErrKeywordName, 3},
		{"f(a=1, a=2)", ErrKeywordRepeated, 7},
		{"f(,)", ErrEmptyExpression, 2},
		{"[1 for 2 in x]", ErrComprehension, 7},
		{"[,]", ErrUnexpectedToken, 1},
		{"a.", ErrAttributeName, 2},
		{"a.1", ErrUnexpectedToken, 1},
		{"a[]", ErrEmptyExpression, 2},
		{"a[1:2:3:4]", ErrUnexpectedToken, 7},
		{"'abc", ErrUnterminatedString, 4},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			_, _, err := Parse(tt.src, WithoutCache())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.src, err, tt.want)
			}

			if !IsSyntax(err) {
				t.Errorf("IsSyntax(%v) = false", err)
			}

			var e *Error
			if errors.As(err, &e) && e.Pos() != tt.pos {
				t.Errorf("Pos = %d, want %d\n%s", e.Pos(), tt.pos, e.Snippet())
			}
		})
	}
}

func TestParse_Trailing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want string
		stop int
	}{
		{"a + b c", "a + b", 6},
		{"f(x) )", "f(x)", 5},
		{"x y z", "x", 2},
		{"1 2", "1", 2},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			n, stop, err := Parse(tt.src, AllowTrailing(true), WithoutCache())
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.src, err)
			}

			if n.String() != tt.want || stop != tt.stop {
				t.Errorf("Parse(%q) = %q, %d; want %q, %d",
					tt.src, n.String(), stop, tt.want, tt.stop)
			}
		})
	}

	// Trailing text is only accepted outside parentheses.
	if _, _, err := Parse("(a b", AllowTrailing(true), WithoutCache()); !errors.Is(err, ErrUnexpectedToken) {
		t.Errorf("Parse(\"(a b\") error = %v, want ErrUnexpectedToken", err)
	}
}

func TestParseInterpolated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		stops    []string
		consumed string
		frags    []string
	}{
		{
			name:     "expressions",
			text:     "Hello {{ name }}, {{ surname }}!",
			consumed: "Hello {{ name }}, {{ surname }}!",
			frags:    []string{"'Hello '", "str(name)", "', '", "str(surname)", "'!'"},
		},
		{
			name:     "literal only",
			text:     "no markers }} here",
			consumed: "no markers }} here",
			frags:    []string{"'no markers }} here'"},
		},
		{
			name:     "adjacent",
			text:     "{{a}}{{b+1}}",
			consumed: "{{a}}{{b+1}}",
			frags:    []string{"str(a)", "str(b + 1)"},
		},
		{
			name:     "stop marker",
			text:     "a {{ x }} b {% end %} c",
			stops:    []string{"{%"},
			consumed: "a {{ x }} b ",
			frags:    []string{"'a '", "str(x)", "' b '"},
		},
		{
			name:     "empty",
			text:     "",
			consumed: "",
			frags:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			consumed, frags, err := ParseInterpolated(tt.text, "{{", "}}", tt.stops...)
			if err != nil {
				t.Fatalf("ParseInterpolated(%q): %v", tt.text, err)
			}

			if consumed != tt.consumed {
				t.Errorf("consumed = %q, want %q", consumed, tt.consumed)
			}

			var got []string
			for _, f := range frags {
				got = append(got, f.String())
			}

			if diff := pretty.Compare(tt.frags, got); diff != "" {
				t.Errorf("fragments diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseInterpolated_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want *Error
		pos  int
	}{
		{"a {{ x", ErrUnterminatedMarker, 2},
		{"{{ }}", ErrEmptyExpression, 3},
		{"{{ 1 + }}", ErrMissingOperand, 5},
		{"{{ 'open }}", ErrUnterminatedString, 11},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			_, _, err := ParseInterpolated(tt.text, "{{", "}}")
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}

			var e *Error
			if errors.As(err, &e) && e.Pos() != tt.pos {
				t.Errorf("Pos = %d, want %d", e.Pos(), tt.pos)
			}
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("MustParse did not panic")
		}
	}()

	MustParse("1 +", WithoutCache())
}
