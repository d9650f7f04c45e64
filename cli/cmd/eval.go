package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/log"
	"github.com/ardnew/livexpr/scope"
)

// Eval evaluates expressions against the user scope.
type Eval struct {
	Output string   `default:"text" enum:"text,json,yaml" help:"Output format (${enum})." short:"o"`
	Expr   []string `arg:""                               help:"Expressions to evaluate." name:"expr"`
}

// Run executes the eval command.
//
// Text output prints one line per expression. JSON and YAML print a single
// document: the value itself for one expression, a list for several.
func (e *Eval) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	sc, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	values := make([]any, 0, len(e.Expr))

	for _, src := range e.Expr {
		val, err := evalString(src, sc)
		if err != nil {
			return lang.WrapError(err).With(slog.String("command", "eval"))
		}

		log.DebugContext(ctx, "evaluated",
			slog.String("expr", src),
			slog.String("value", lang.Repr(val)),
		)

		values = append(values, scope.Unwrap(val))
	}

	out := outputFrom(ctx)

	if e.Output == formatText {
		for _, v := range values {
			if err := writeValue(out, formatText, v); err != nil {
				return err
			}
		}

		return nil
	}

	if len(values) == 1 {
		return writeValue(out, e.Output, values[0])
	}

	return writeValue(out, e.Output, values)
}
