package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/scope"
)

// writeFile writes content to name under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

// reprOf returns the repr of name in sc, or "<undefined>".
func reprOf(sc *scope.Context, name string) string {
	v, ok := sc.Get(name)
	if !ok {
		return "<undefined>"
	}

	return lang.Repr(v)
}

func TestVarsScope(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", `
name: World
port: 8080
log-level: debug
server:
  Max Size: 10
  hosts: [a, b]
`)
	override := writeFile(t, dir, "override.yaml", "name: Gopher\n")

	vars := Vars{
		Files: []string{base, override},
		Set:   []string{"port=port + 1", "greeting = 'Hello ' + name"},
	}

	sc, err := vars.Scope(context.Background())
	if err != nil {
		t.Fatalf("Scope: %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"name", "'Gopher'"},
		{"port", "8081"},
		{"log_level", "'debug'"},
		{"greeting", "'Hello Gopher'"},
		{"server", "{'hosts': ['a', 'b'], 'max_size': 10}"},
	}

	for _, tt := range tests {
		if got := reprOf(sc, tt.name); got != tt.want {
			t.Errorf("%s = %s, want %s", tt.name, got, tt.want)
		}
	}

	if _, ok := sc.Get("cwd"); !ok {
		t.Error("builtin cwd not visible from the user scope")
	}
}

func TestVarsScopeErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.yaml", "name: [unclosed\n")
	good := writeFile(t, dir, "good.yaml", "n: 1\n")

	tests := []struct {
		name  string
		vars  Vars
		is    error
		check string
	}{
		{"malformed yaml", Vars{Files: []string{bad, good}}, nil, "n"},
		{"missing equals", Vars{Set: []string{"justaname"}}, ErrAssignment, ""},
		{"bad name", Vars{Set: []string{"1x=2"}}, ErrAssignment, ""},
		{"bad expression", Vars{Set: []string{"x=1 +"}}, ErrAssignment, ""},
		{"undefined name", Vars{Set: []string{"x=nope"}}, ErrAssignment, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sc, err := tt.vars.Scope(context.Background())
			if err == nil {
				t.Fatal("Scope succeeded, want error")
			}

			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("Scope error = %v, want %v", err, tt.is)
			}

			// Sources that do load are still applied.
			if tt.check != "" {
				if _, ok := sc.Get(tt.check); !ok {
					t.Errorf("%s not loaded despite an error in another source", tt.check)
				}
			}
		})
	}
}

func TestVarsReload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "vars.yaml", "a: 1\nb: 2\n")

	vars := Vars{Files: []string{path}, Set: []string{"b=20"}}

	sc, err := vars.Scope(context.Background())
	if err != nil {
		t.Fatalf("Scope: %v", err)
	}

	writeFile(t, dir, "vars.yaml", "a: 5\nb: 6\n")

	if err := vars.Reload(context.Background(), sc, path); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if got := reprOf(sc, "a"); got != "5" {
		t.Errorf("a = %s, want 5", got)
	}

	if got := reprOf(sc, "b"); got != "20" {
		t.Errorf("b = %s, want 20 (assignments keep precedence)", got)
	}
}

func TestNormalizeKeys(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"plain":     1,
		"kebab-key": 2,
		"nested": map[string]any{
			"Space Key": []any{map[string]any{"dash-in-list": true}},
		},
	}

	want := map[string]any{
		"plain":     1,
		"kebab_key": 2,
		"nested": map[string]any{
			"space_key": []any{map[string]any{"dash_in_list": true}},
		},
	}

	if diff := pretty.Compare(normalizeKeys(in), want); diff != "" {
		t.Errorf("normalizeKeys diff (-got +want):\n%s", diff)
	}
}

func TestUniqueFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "a: 1\n")
	b := writeFile(t, dir, "b.yaml", "b: 1\n")

	link := filepath.Join(dir, "link.yaml")
	if err := os.Symlink(a, link); err != nil {
		t.Skipf("symlink: %v", err)
	}

	resolved := func(p string) string {
		r, err := filepath.EvalSymlinks(p)
		if err != nil {
			t.Fatal(err)
		}

		return r
	}

	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{"empty", nil, nil},
		{"single", []string{a}, []string{resolved(a)}},
		{"duplicate", []string{a, a, b}, []string{resolved(a), resolved(b)}},
		{"symlink", []string{link, a}, []string{resolved(a)}},
		{"stdin last", []string{"-", b, "-"}, []string{resolved(b), "-"}},
		{"missing dropped", []string{filepath.Join(dir, "nope.yaml"), b}, []string{resolved(b)}},
	}

	for _, tt := range tests {
		if diff := pretty.Compare(uniqueFiles(tt.files), tt.want); diff != "" {
			t.Errorf("%s: uniqueFiles diff (-got +want):\n%s", tt.name, diff)
		}
	}
}

func TestWithVars(t *testing.T) {
	t.Parallel()

	if got := varsFrom(context.Background()); got.Files != nil || got.Set != nil {
		t.Errorf("varsFrom(empty) = %+v, want zero", got)
	}

	ctx := WithVars(context.Background(), nil, []string{"x=1"})

	sc, err := scopeFrom(ctx)
	if err != nil {
		t.Fatalf("scopeFrom: %v", err)
	}

	if got := reprOf(sc, "x"); got != "1" {
		t.Errorf("x = %s, want 1", got)
	}
}
