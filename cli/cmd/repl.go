package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/livexpr/cli/cmd/repl"
	"github.com/ardnew/livexpr/log"
)

// Repl starts an interactive session over the user scope.
type Repl struct {
	NoHistory bool `help:"Do not read or write input history." name:"no-history"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	sc, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	var cacheDir string

	if ktx := kongContextFrom(ctx); ktx != nil && !r.NoHistory {
		cacheDir = ktx.Model.Vars()[CacheIdentifier]
	}

	log.DebugContext(ctx, "starting repl",
		slog.String("cache", cacheDir),
		slog.Int("vars", len(sc.Map())),
	)

	return repl.Run(ctx, sc, cacheDir, log.Default())
}
