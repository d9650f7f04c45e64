package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// useDefault installs a package-level logger writing to the returned buffer
// for the duration of the test.
func useDefault(t *testing.T, opts ...Option) *bytes.Buffer {
	t.Helper()

	original := Default()
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultLog = original
		defaultMu.Unlock()
	})

	var buf bytes.Buffer

	defaultMu.Lock()
	defaultLog = Make(&buf, append([]Option{WithPretty(false)}, opts...)...)
	defaultMu.Unlock()

	return &buf
}

func TestPackage_Functions(t *testing.T) {
	buf := useDefault(t, WithLevel(LevelTrace))

	tests := []struct {
		fn    func(string, ...slog.Attr)
		level string
	}{
		{Trace, "TRACE"},
		{Debug, "DEBUG"},
		{Info, "INFO"},
		{Warn, "WARN"},
		{Error, "ERROR"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.fn("message", slog.String("key", "value"))

		out := buf.String()
		if !strings.Contains(out, `"level":"`+tt.level+`"`) ||
			!strings.Contains(out, `"key":"value"`) {
			t.Errorf("%s output = %s", tt.level, out)
		}
	}
}

func TestPackage_ContextFunctions(t *testing.T) {
	buf := useDefault(t, WithLevel(LevelTrace))

	for _, fn := range []func(string, ...slog.Attr){
		func(m string, a ...slog.Attr) { TraceContext(t.Context(), m, a...) },
		func(m string, a ...slog.Attr) { DebugContext(t.Context(), m, a...) },
		func(m string, a ...slog.Attr) { InfoContext(t.Context(), m, a...) },
		func(m string, a ...slog.Attr) { WarnContext(t.Context(), m, a...) },
		func(m string, a ...slog.Attr) { ErrorContext(t.Context(), m, a...) },
	} {
		fn("context message")
	}

	if n := strings.Count(buf.String(), "context message"); n != 5 {
		t.Errorf("logged %d messages, want 5", n)
	}
}

func TestConfig_UpdatesDefault(t *testing.T) {
	buf := useDefault(t)

	Debug("before")
	Config(WithLevel(LevelDebug))
	Debug("after")

	if out := buf.String(); strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Errorf("output = %q", out)
	}
}

func TestPackage_CallerSkipsWrapper(t *testing.T) {
	buf := useDefault(t, WithCaller(true), WithFormat(FormatText))

	Info("where")

	if out := buf.String(); !strings.Contains(out, "pkg_test.go:") {
		t.Errorf("source is not the caller of the package function: %q", out)
	}
}
