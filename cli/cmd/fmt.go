package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/ardnew/livexpr/builtin"
	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/scope"
)

// Fmt prints expressions or templates in canonical form.
type Fmt struct {
	Simplify bool     `help:"Fold constant subexpressions, treating builtin names as constants." short:"s"`
	Template bool     `help:"Treat each argument as a template with embedded expressions."      short:"t"`
	Start    string   `help:"Start marker of embedded expressions."                              default:"{{"`
	End      string   `help:"End marker of embedded expressions."                                default:"}}"`
	Expr     []string `help:"Expressions to format."                                             arg:"" name:"expr"`
}

// Run executes the fmt command.
func (f *Fmt) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	out := outputFrom(ctx)

	for _, src := range f.Expr {
		text, err := f.format(src)
		if err != nil {
			return lang.WrapError(err).With(slog.String("command", "fmt"))
		}

		if _, err := fmt.Fprintln(out, text); err != nil {
			return err
		}
	}

	return nil
}

func (f *Fmt) format(src string) (string, error) {
	if f.Template {
		tmpl, err := lang.NewInterpolated(src, lang.WithMarkers(f.Start, f.End))
		if err != nil {
			return "", err
		}

		return tmpl.String(), nil
	}

	node, _, err := lang.Parse(src)
	if err != nil {
		return "", err
	}

	if f.Simplify {
		sc := builtin.Scope()

		node.Bind(sc)
		defer node.Unbind()

		return node.Simplify(foldable(sc)...).String(), nil
	}

	return node.String(), nil
}

// foldable returns the immutable names of sc whose values contain no
// functions. Folding a function reference leaves no literal to print.
func foldable(sc *scope.Context) []string {
	var names []string

	for _, name := range sc.ImmutableNames() {
		if v, _ := sc.Get(name); plain(v) {
			names = append(names, name)
		}
	}

	return names
}

func plain(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case *lang.Function:
		return false
	case *scope.Dict:
		for _, item := range v.All() {
			if !plain(item) {
				return false
			}
		}

		return true
	}

	return reflect.TypeOf(v).Kind() != reflect.Func
}
