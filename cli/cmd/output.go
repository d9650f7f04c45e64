package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/livexpr/lang"
)

// Output formats shared by commands printing values.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// writeValue encodes v to w in the given format. Text renders v as the str
// builtin does.
func writeValue(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ErrJSONMarshal.With(slog.String("type", fmt.Sprintf("%T", v))).Wrap(err)
		}

		_, err = fmt.Fprintf(w, "%s\n", data)

		return err

	case formatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return ErrYAMLMarshal.With(slog.String("type", fmt.Sprintf("%T", v))).Wrap(err)
		}

		_, err = w.Write(data)

		return err

	default:
		_, err := fmt.Fprintln(w, lang.Str(v))

		return err
	}
}
