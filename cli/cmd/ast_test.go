package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/kylelemons/godebug/pretty"
)

// shape strips positions and sources from d for comparison.
func shape(d astNode) astNode {
	s := astNode{Kind: d.Kind, Detail: d.Detail, Const: d.Const}
	for _, c := range d.Children {
		s.Children = append(s.Children, shape(c))
	}

	return s
}

var wantSumShape = astNode{
	Kind:   "Op",
	Detail: "+",
	Children: []astNode{
		{Kind: "Const", Const: true},
		{Kind: "Op", Detail: "*", Children: []astNode{
			{Kind: "Ident", Detail: "x"},
			{Kind: "Const", Const: true},
		}},
	},
}

func TestASTRunTree(t *testing.T) {
	t.Parallel()

	ctx, out := testContext(nil, nil)

	if err := (&AST{Output: "tree", Expr: "1 + x * 2"}).Run(ctx); err != nil {
		t.Fatalf("AST.Run: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")

	want := []string{
		"Op +  1 + x * 2  @",
		"  Const  1  @",
		"  Op *  x * 2  @",
		"    Ident x  x  @",
		"    Const  2  @",
	}

	if len(lines) != len(want) {
		t.Fatalf("tree has %d lines, want %d:\n%s", len(lines), len(want), out)
	}

	for i, w := range want {
		if !strings.HasPrefix(lines[i], w) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], w)
		}
	}
}

func TestASTRunStructured(t *testing.T) {
	t.Parallel()

	decoders := map[string]func([]byte, any) error{
		formatJSON: json.Unmarshal,
		formatYAML: yaml.Unmarshal,
	}

	for format, decode := range decoders {
		t.Run(format, func(t *testing.T) {
			t.Parallel()

			ctx, out := testContext(nil, nil)

			if err := (&AST{Output: format, Expr: "1 + x * 2"}).Run(ctx); err != nil {
				t.Fatalf("AST.Run: %v", err)
			}

			var got astNode
			if err := decode(out.Bytes(), &got); err != nil {
				t.Fatalf("decode %s: %v\n%s", format, err, out)
			}

			if got.Source != "1 + x * 2" {
				t.Errorf("source = %q, want %q", got.Source, "1 + x * 2")
			}

			if diff := pretty.Compare(shape(got), wantSumShape); diff != "" {
				t.Errorf("tree diff (-got +want):\n%s", diff)
			}
		})
	}
}

func TestASTRunDump(t *testing.T) {
	t.Parallel()

	ctx, out := testContext(nil, nil)

	if err := (&AST{Output: "dump", Expr: "a.b"}).Run(ctx); err != nil {
		t.Fatalf("AST.Run: %v", err)
	}

	for _, want := range []string{"Attr", "Ident"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestDescribeDetail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		kind string
		want string
	}{
		{"-x", "Op", "-"},
		{"a.b", "Attr", ".b"},
		{"name", "Ident", "name"},
		{"'s'", "Const", ""},
	}

	for _, tt := range tests {
		ctx, out := testContext(nil, nil)

		if err := (&AST{Output: formatJSON, Expr: tt.src}).Run(ctx); err != nil {
			t.Fatalf("AST.Run(%q): %v", tt.src, err)
		}

		var got astNode
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatal(err)
		}

		if got.Kind != tt.kind || got.Detail != tt.want {
			t.Errorf("%q: kind %q detail %q, want %q %q", tt.src, got.Kind, got.Detail, tt.kind, tt.want)
		}
	}
}
