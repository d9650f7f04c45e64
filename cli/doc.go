// Package cli contains the command line interface for livexpr.
//
// # Usage
//
// Expressions are evaluated against a scope built from YAML variable files
// and single assignments, applied in order:
//
//	livexpr -v base.yaml -v local.yaml --set 'port=port+1' 'host + ":" + str(port)'
//
// Eval is the default command, so the command name may be omitted. See
// the subcommands for rendering templates, solving for a variable, formatting,
// checking and printing syntax trees, and the interactive REPL.
//
// # Configuration
//
// Flag defaults are read from config.yaml (and config.json) in the user
// configuration directory, then from environment variables named after the
// flag with the executable name as prefix, e.g. LIVEXPR_LOG_LEVEL. Use the
// init command to write the current flags to config.yaml. Keys in the YAML
// file may be written in kebab, snake, or lower camel case.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, etc.)
//   - --log-caller: Include caller information in log output
//   - --[no-]log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o livexpr .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default: ~/.cache/livexpr/pprof)
package cli
