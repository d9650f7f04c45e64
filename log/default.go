package log

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
)

// DefaultContextProvider supplies the context of the logging functions and
// methods that do not take one.
var DefaultContextProvider = context.TODO

var (
	defaultMu  sync.RWMutex
	defaultLog = Make(os.Stderr)
)

// Default returns the package-level logger.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()

	return defaultLog
}

// Config reconfigures the package-level logger with opts applied on top of
// its current configuration.
func Config(opts ...Option) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultLog = defaultLog.Wrap(opts...)
}

// SetDefault makes l the package-level logger and the [slog] default.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defaultLog = l
	defaultMu.Unlock()

	if l.Logger != nil {
		slog.SetDefault(l.Logger)
	}
}

func TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().TraceContext(ctx, msg, attrs...)
}

func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().DebugContext(ctx, msg, attrs...)
}

func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().InfoContext(ctx, msg, attrs...)
}

func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().WarnContext(ctx, msg, attrs...)
}

func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().ErrorContext(ctx, msg, attrs...)
}

func Trace(msg string, attrs ...slog.Attr) { Default().Trace(msg, attrs...) }
func Debug(msg string, attrs ...slog.Attr) { Default().Debug(msg, attrs...) }
func Info(msg string, attrs ...slog.Attr)  { Default().Info(msg, attrs...) }
func Warn(msg string, attrs ...slog.Attr)  { Default().Warn(msg, attrs...) }
func Error(msg string, attrs ...slog.Attr) { Default().Error(msg, attrs...) }

var (
	pkgPath  = reflect.TypeFor[Logger]().PkgPath()
	pkgFuncs = map[string]bool{
		"Trace": true, "TraceContext": true,
		"Debug": true, "DebugContext": true,
		"Info": true, "InfoContext": true,
		"Warn": true, "WarnContext": true,
		"Error": true, "ErrorContext": true,
	}
)

func isPackageFunc(fn string) bool {
	name, ok := strings.CutPrefix(fn, pkgPath+".")

	return ok && pkgFuncs[name]
}
