package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sanity-io/litter"

	"github.com/ardnew/livexpr/lang"
)

// AST prints the parse tree of an expression.
type AST struct {
	Output string `default:"tree" enum:"tree,yaml,json,dump" help:"Output format (${enum})." short:"o"`
	Expr   string `arg:""                                    help:"Expression to parse."`
}

// astNode is the serialisable form of a parse tree.
type astNode struct {
	Kind     string    `json:"kind"               yaml:"kind"`
	Detail   string    `json:"detail,omitempty"   yaml:"detail,omitempty"`
	Source   string    `json:"source"             yaml:"source"`
	Pos      int       `json:"pos"                yaml:"pos"`
	Const    bool      `json:"const"              yaml:"const"`
	Children []astNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Run executes the ast command.
func (a *AST) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	node, _, err := lang.Parse(a.Expr)
	if err != nil {
		return lang.WrapError(err).With(slog.String("command", "ast"))
	}

	out := outputFrom(ctx)

	switch a.Output {
	case "dump":
		_, err = io.WriteString(out, dumper.Sdump(node)+"\n")

		return err

	case formatJSON, formatYAML:
		return writeValue(out, a.Output, describe(node))

	default:
		return writeTree(out, describe(node), "")
	}
}

var dumper = litter.Options{ //nolint:gochecknoglobals
	StripPackageNames: true,
	HidePrivateFields: false,
	HomePackage:       "lang",
}

func describe(n lang.Node) astNode {
	kind := strings.TrimPrefix(fmt.Sprintf("%T", n), "*lang.")

	d := astNode{
		Kind:   kind,
		Detail: detail(n),
		Source: n.String(),
		Pos:    n.Pos(),
		Const:  n.IsConst(),
	}

	for _, c := range lang.Children(n) {
		d.Children = append(d.Children, describe(c))
	}

	return d
}

func detail(n lang.Node) string {
	switch n := n.(type) {
	case *lang.Op:
		return n.Operator()
	case *lang.Ident:
		return n.Name()
	case *lang.Attr:
		return "." + n.Name()
	case *lang.Compr:
		return "for " + n.Var()
	case *lang.Slice:
		if n.IsSlice() {
			return "slice"
		}

		return "index"
	}

	return ""
}

// writeTree prints d and its descendants one per line, indented by depth.
func writeTree(w io.Writer, d astNode, indent string) error {
	label := d.Kind
	if d.Detail != "" {
		label += " " + d.Detail
	}

	_, err := fmt.Fprintf(w, "%s%s  %s  @%d\n", indent, label, d.Source, d.Pos)
	if err != nil {
		return err
	}

	for _, c := range d.Children {
		if err := writeTree(w, c, indent+"  "); err != nil {
			return err
		}
	}

	return nil
}
