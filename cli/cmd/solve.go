package cmd

import (
	"context"
	"log/slog"
	"maps"
	"reflect"
	"slices"

	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/log"
)

// Solve assigns a variable so that an expression takes a desired value.
type Solve struct {
	Output string `default:"yaml" enum:"yaml,json,text" help:"Output format (${enum})." short:"o"`

	Expr   string `arg:"" help:"Expression to solve."`
	Target string `arg:"" help:"Name, or location such as xs[1], to assign."`
	Value  string `arg:"" help:"Expression giving the desired value of EXPR."`
}

// Run executes the solve command. It prints the variables of the user scope
// whose values changed.
func (s *Solve) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	sc, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	attrs := []slog.Attr{
		slog.String("command", "solve"),
		slog.String("expr", s.Expr),
		slog.String("target", s.Target),
	}

	node, _, err := lang.Parse(s.Expr)
	if err != nil {
		return lang.WrapError(err).With(attrs...)
	}

	target, _, err := lang.Parse(s.Target)
	if err != nil {
		return lang.WrapError(err).With(attrs...)
	}

	want, err := evalString(s.Value, sc)
	if err != nil {
		return lang.WrapError(err).With(attrs...)
	}

	node.Bind(sc)
	defer node.Unbind()

	before := sc.Map()

	if err := node.Solve(want, target); err != nil {
		return ErrSolve.With(attrs...).Wrap(err)
	}

	after := sc.Map()

	changed := make(map[string]any)

	for name, v := range after {
		if old, ok := before[name]; !ok || !reflect.DeepEqual(old, v) {
			changed[name] = v
		}
	}

	got, _ := node.Eval(true)

	log.DebugContext(ctx, "solved",
		slog.String("expr", s.Expr),
		slog.String("value", lang.Repr(got)),
		slog.Any("changed", slices.Sorted(maps.Keys(changed))),
	)

	return writeValue(outputFrom(ctx), s.Output, changed)
}
