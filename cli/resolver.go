package cli

import (
	"context"
	"io"
	"log/slog"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
	"github.com/iancoleman/strcase"

	"github.com/ardnew/livexpr/log"
)

// resolve returns a [kong.ConfigurationLoader] that reads a YAML mapping of
// flag names to values.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve(ctx), "/path/to/config.yaml")
//
// Keys may be written as the flag name ("log-level"), in snake case
// ("log_level"), or in lower camel case ("logLevel"). Sequences are accepted
// for repeated flags and mappings for map flags. A file that fails to decode
// is logged and ignored so that a broken config never prevents the command
// from running. Command-line flags override config file values.
//
// Example config file:
//
//	log-level: debug
//	log-format: text
//	vars: [base.yaml, local.yaml]
//	set:
//	  - name='Gopher'
func resolve(ctx context.Context) func(r io.Reader) (kong.Resolver, error) {
	return func(r io.Reader) (kong.Resolver, error) {
		var raw map[string]any

		err := yaml.NewDecoder(r).Decode(&raw)
		if err != nil && err != io.EOF {
			log.WarnContext(ctx, "ignoring malformed config",
				slog.String("error", err.Error()),
			)

			return config{}, nil
		}

		cfg := make(config, len(raw))
		for k, v := range raw {
			cfg[k] = flagValue(v)
		}

		return cfg, nil
	}
}

// config implements [kong.Resolver] for YAML configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (c config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	for _, key := range []string{
		flag.Name,
		strcase.ToSnake(flag.Name),
		strcase.ToLowerCamel(flag.Name),
	} {
		if v, ok := c[key]; ok {
			return v, nil
		}
	}

	return nil, nil
}

// flagValue converts a decoded YAML value to a form kong can parse.
// Kong parses numbers from strings.
func flagValue(v any) any {
	switch v := v.(type) {
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = flagValue(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = flagValue(e)
		}

		return out
	default:
		return v
	}
}
