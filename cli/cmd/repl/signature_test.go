package repl

import (
	"strings"
	"testing"

	"github.com/ardnew/livexpr/builtin"
	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/scope"
)

func TestDetectFunctionCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		cursor     int
		wantName   string
		wantIndex  int
		wantInCall bool
	}{
		{
			name:       "no function call",
			input:      "greeting",
			cursor:     8,
			wantName:   "",
			wantIndex:  0,
			wantInCall: false,
		},
		{
			name:       "simple function first arg",
			input:      "add(",
			cursor:     4,
			wantName:   "add",
			wantIndex:  0,
			wantInCall: true,
		},
		{
			name:       "simple function with first arg",
			input:      "add(1",
			cursor:     5,
			wantName:   "add",
			wantIndex:  0,
			wantInCall: true,
		},
		{
			name:       "simple function second arg",
			input:      "add(1,",
			cursor:     6,
			wantName:   "add",
			wantIndex:  1,
			wantInCall: true,
		},
		{
			name:       "simple function second arg with value",
			input:      "add(1, 2",
			cursor:     8,
			wantName:   "add",
			wantIndex:  1,
			wantInCall: true,
		},
		{
			name:       "member function",
			input:      "pathlist.prefix(",
			cursor:     16,
			wantName:   "pathlist.prefix",
			wantIndex:  0,
			wantInCall: true,
		},
		{
			name:       "member function first arg",
			input:      "pathlist.prefix(5",
			cursor:     17,
			wantName:   "pathlist.prefix",
			wantIndex:  0,
			wantInCall: true,
		},
		{
			name:       "member function second arg",
			input:      "pathlist.prefix(5,",
			cursor:     18,
			wantName:   "pathlist.prefix",
			wantIndex:  1,
			wantInCall: true,
		},
		{
			name:       "builtin path.cat",
			input:      "path.cat(",
			cursor:     9,
			wantName:   "path.cat",
			wantIndex:  0,
			wantInCall: true,
		},
		{
			name:       "builtin path.cat multiple args",
			input:      "path.cat('/a', '/b',",
			cursor:     21,
			wantName:   "path.cat",
			wantIndex:  2,
			wantInCall: true,
		},
		{
			name:       "builtin pathlist.split",
			input:      "pathlist.split(",
			cursor:     15,
			wantName:   "pathlist.split",
			wantIndex:  0,
			wantInCall: true,
		},
		{
			name:       "nested parens",
			input:      "add(multiply(2, 3),",
			cursor:     19,
			wantName:   "add",
			wantIndex:  1,
			wantInCall: true,
		},
		{
			name:       "cursor inside nested call",
			input:      "add(multiply(2, 3), 4)",
			cursor:     13,
			wantName:   "multiply",
			wantIndex:  0,
			wantInCall: true,
		},
		{
			name:       "dollar identifier",
			input:      "$fmt(1, ",
			cursor:     8,
			wantName:   "$fmt",
			wantIndex:  1,
			wantInCall: true,
		},
		{
			name:       "call after operator",
			input:      "x - len(xs",
			cursor:     10,
			wantName:   "len",
			wantIndex:  0,
			wantInCall: true,
		},
		{
			name:       "comma in string",
			input:      "path.cat('a,b', ",
			cursor:     16,
			wantName:   "path.cat",
			wantIndex:  1,
			wantInCall: true,
		},
		{
			name:       "inside list argument",
			input:      "len([1, 2",
			cursor:     9,
			wantName:   "",
			wantIndex:  0,
			wantInCall: false,
		},
		{
			name:       "after list argument",
			input:      "pathlist.join([1, 2], ",
			cursor:     22,
			wantName:   "pathlist.join",
			wantIndex:  1,
			wantInCall: true,
		},
		{
			name:       "grouping parens",
			input:      "(1, 2",
			cursor:     5,
			wantName:   "",
			wantIndex:  0,
			wantInCall: false,
		},
		{
			name:       "variadic function multiple args",
			input:      "concat('a', 'b', 'c'",
			cursor:     20,
			wantName:   "concat",
			wantIndex:  2,
			wantInCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := detectFunctionCall(tt.input, tt.cursor)

			if got.name != tt.wantName {
				t.Errorf("detectFunctionCall().name = %q, want %q", got.name, tt.wantName)
			}
			if got.argIndex != tt.wantIndex {
				t.Errorf("detectFunctionCall().argIndex = %d, want %d", got.argIndex, tt.wantIndex)
			}
			if got.inCall != tt.wantInCall {
				t.Errorf("detectFunctionCall().inCall = %v, want %v", got.inCall, tt.wantInCall)
			}
		})
	}
}

func TestGetSignature(t *testing.T) {
	t.Parallel()

	sc := scope.New(map[string]any{
		"add":      func(a, b int) int { return a + b },
		"greet":    lang.NewFunction("greet", func(name string) string { return "hi " + name }),
		"greeting": "hello",
	}, builtin.Scope())

	tests := []struct {
		name          string
		funcName      string
		wantSignature string
		wantParams    []string
	}{
		{"go function", "add", "add(int, int)", []string{"int", "int"}},
		{"wrapped function", "greet", "greet(...args)", []string{"...args"}},
		{"builtin file.exists", "file.exists", "file.exists(string)", []string{"string"}},
		{"builtin path.cat", "path.cat", "path.cat(...string)", []string{"...string"}},
		{"builtin path.rel", "path.rel", "path.rel(string, string)", []string{"string", "string"}},
		{
			"builtin pathlist.prefixif", "pathlist.prefixif",
			"pathlist.prefixif(string, func, ...string)",
			[]string{"string", "func", "...string"},
		},
		{"builtin pathlist.join", "pathlist.join", "pathlist.join(items)", []string{"items"}},
		{"builtin pathlist.split", "pathlist.split", "pathlist.split(list)", []string{"list"}},
		{"not a function", "greeting", "", nil},
		{"undefined", "doesnotexist", "", nil},
		{"unparseable", "a..b", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotSig, gotParams := getSignature(sc, tt.funcName)

			if gotSig != tt.wantSignature {
				t.Errorf("getSignature().signature = %q, want %q", gotSig, tt.wantSignature)
			}

			if strings.Join(gotParams, ",") != strings.Join(tt.wantParams, ",") {
				t.Errorf("getSignature().params = %q, want %q", gotParams, tt.wantParams)
			}
		})
	}
}

func TestRenderSignatureHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		signature  string
		params     []string
		currentArg int
		want       []string
	}{
		{"empty", "", nil, 0, nil},
		{"no params", "cwd()", []string{}, 0, []string{"cwd", "()"}},
		{"first param", "path.rel(string, string)", []string{"string", "string"}, 0, []string{"path.rel", "string"}},
		{"past last param", "path.rel(string, string)", []string{"string", "string"}, 4, []string{"path.rel"}},
		{"variadic", "path.cat(...string)", []string{"...string"}, 2, []string{"path.cat", "...string"}},
		{"malformed", "oops", []string{"x"}, 0, []string{"oops"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := renderSignatureHint(tt.signature, tt.params, tt.currentArg)

			if tt.signature == "" && got != "" {
				t.Errorf("renderSignatureHint(\"\") = %q, want empty", got)
			}

			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("renderSignatureHint(%q) = %q, missing %q", tt.signature, got, w)
				}
			}
		})
	}
}
