// Package log is a concurrency-safe structured logger built on [log/slog].
//
// A [Logger] is a value configured with functional options when it is made:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText),
//		log.WithTimeLayout("kitchen"))
//
//	logger.Debug("parse cache miss", slog.String("source", src))
//
// [Logger.Wrap] derives a logger with a modified configuration and
// [Logger.With] one that adds attributes to every message. Attributes are
// always typed [slog.Attr] values.
//
// # Levels
//
// Besides the [slog] levels, [LevelTrace] sits below [LevelDebug] and is
// used for per-node evaluation detail. [ParseLevel] accepts the level names
// in any case with an optional numeric offset ("info+2").
//
// # Output
//
// [FormatJSON] and [FormatText] select the [slog] JSON and text handlers.
// With [WithPretty] (the default) both are replaced by handlers that omit
// quoting and color keys, values and levels with lipgloss styles; color is
// only emitted when the output is a terminal.
//
// # Package logger
//
// The package-level functions [Info], [Debug], [ErrorContext] and so on log
// through [Default], which [Config] reconfigures in place. Functions and
// methods without a context argument use [DefaultContextProvider].
package log
