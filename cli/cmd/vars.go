package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"

	"github.com/ardnew/livexpr/builtin"
	"github.com/ardnew/livexpr/lang"
	"github.com/ardnew/livexpr/log"
	"github.com/ardnew/livexpr/scope"
)

// Vars names the sources of a user scope.
type Vars struct {
	// Files are YAML documents whose top-level mapping is merged into the
	// scope in order. "-" reads stdin.
	Files []string
	// Set holds name=expr assignments applied after every file. Each
	// expression is evaluated against the scope built so far.
	Set []string
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Scope returns a new user scope over the builtin scope, seeded from v.
func (v Vars) Scope(ctx context.Context) (*scope.Context, error) {
	sc := scope.New(nil, builtin.Scope())

	var result *multierror.Error

	for _, path := range v.Files {
		if err := merge(ctx, sc, path); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := v.apply(ctx, sc); err != nil {
		result = multierror.Append(result, err)
	}

	return sc, result.ErrorOrNil()
}

// Reload merges the file at path into sc and re-applies every assignment so
// they keep precedence over file values.
func (v Vars) Reload(ctx context.Context, sc *scope.Context, path string) error {
	var result *multierror.Error

	if err := merge(ctx, sc, path); err != nil {
		result = multierror.Append(result, err)
	}

	if err := v.apply(ctx, sc); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// merge sets every variable of the file at path in sc.
func merge(ctx context.Context, sc *scope.Context, path string) error {
	vars, err := readVarFile(path)
	if err != nil {
		return err
	}

	log.TraceContext(ctx, "vars loaded",
		slog.String("file", path),
		slog.Int("count", len(vars)),
	)

	if err := sc.Update(vars); err != nil {
		return errors.Wrapf(err, "vars %s", path)
	}

	return nil
}

// apply evaluates every name=expr assignment of v into sc.
func (v Vars) apply(ctx context.Context, sc *scope.Context) error {
	var result *multierror.Error

	for _, set := range v.Set {
		name, src, ok := strings.Cut(set, "=")
		name = strings.TrimSpace(name)

		if !ok || !identifier.MatchString(name) {
			result = multierror.Append(result,
				ErrAssignment.With(slog.String("set", set)))

			continue
		}

		val, err := evalString(src, sc)
		if err != nil {
			result = multierror.Append(result,
				ErrAssignment.With(slog.String("name", name)).Wrap(err))

			continue
		}

		if err := sc.Set(name, val); err != nil {
			result = multierror.Append(result, err)

			continue
		}

		log.TraceContext(ctx, "var set",
			slog.String("name", name),
			slog.String("value", lang.Repr(val)),
		)
	}

	return result.ErrorOrNil()
}

// readVarFile decodes the YAML mapping stored at path.
func readVarFile(path string) (map[string]any, error) {
	var (
		data []byte
		err  error
	)

	if path == stdinSource {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "read vars %s", path)
	}

	var vars map[string]any

	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, errors.Wrapf(err, "decode vars %s", path)
	}

	return normalizeKeys(vars), nil
}

// normalizeKeys rewrites every mapping key that is not an identifier of the
// expression language to snake case, recursively, so "log-level" is
// reachable as log_level.
func normalizeKeys(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))

	for k, v := range vars {
		if !identifier.MatchString(k) {
			k = strcase.ToSnake(k)
		}

		out[k] = normalizeValue(v)
	}

	return out
}

func normalizeValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return normalizeKeys(v)

	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = normalizeValue(item)
		}

		return items

	default:
		return v
	}
}

// evalString parses src and evaluates it against sc without binding.
func evalString(src string, sc *scope.Context) (any, error) {
	node, _, err := lang.Parse(src)
	if err != nil {
		return nil, err
	}

	return node.EvalIn(sc)
}

// scopeFrom builds the user scope described by the Vars stored in ctx.
func scopeFrom(ctx context.Context) (*scope.Context, error) {
	return varsFrom(ctx).Scope(ctx)
}
