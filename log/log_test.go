package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestMake_Defaults(t *testing.T) {
	t.Parallel()

	l := Make(nil)

	if l.Level() != LevelInfo || l.Format() != FormatJSON || l.caller || !l.pretty {
		t.Errorf("Make defaults = %+v", l.config)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := Make(&buf, WithLevel(LevelWarn), WithPretty(false))

	l.Info("hidden")
	l.Trace("hidden")
	l.Warn("shown")

	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q", out)
	}

	if l.Enabled(t.Context(), LevelInfo) || !l.Enabled(t.Context(), LevelError) {
		t.Error("Enabled disagrees with the level")
	}
}

func TestLogger_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := Make(&buf, WithLevel(LevelTrace), WithPretty(false), WithTimeLayout("none"))
	l.Trace("parse cache miss", slog.String("source", "a + b"), slog.Bool("evicted", false))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}

	want := map[string]any{
		"level":   "TRACE",
		"msg":     "parse cache miss",
		"source":  "a + b",
		"evicted": false,
	}

	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}

	if _, ok := got["time"]; ok {
		t.Error("time logged with layout none")
	}
}

func TestLogger_Caller(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := Make(&buf, WithCaller(true), WithFormat(FormatText), WithPretty(false))
	l.Info("where")

	if !strings.Contains(buf.String(), "log_test.go:") {
		t.Errorf("source not reported: %q", buf.String())
	}
}

func TestLogger_WrapAndWith(t *testing.T) {
	t.Parallel()

	var one, two bytes.Buffer

	base := Make(&one, WithPretty(false), WithFormat(FormatText), WithTimeLayout("none"))
	wrapped := base.Wrap(WithOutput(&two), WithLevel(LevelDebug))

	wrapped.Debug("to two")
	base.Debug("dropped")

	if one.Len() != 0 || !strings.Contains(two.String(), "to two") {
		t.Errorf("Wrap changed the original: one=%q two=%q", one.String(), two.String())
	}

	with := base.With(slog.String("cmd", "eval"))
	with.Info("run")

	if got, want := one.String(), "level=INFO msg=run cmd=eval\n"; got != want {
		t.Errorf("With output = %q, want %q", got, want)
	}
}

func TestLogger_ZeroValue(t *testing.T) {
	t.Parallel()

	var l Logger

	// The zero Logger discards without panicking.
	l.Trace("x")
	l.Info("x")
	l.ErrorContext(t.Context(), "x")

	if l.Level() != DefaultLevel || l.Format() != DefaultFormat {
		t.Error("zero Logger does not report defaults")
	}

	if l.With(slog.String("k", "v")).Logger != nil {
		t.Error("With on the zero Logger created a logger")
	}

	var buf bytes.Buffer

	l.Wrap(WithOutput(&buf)).Info("wrapped")

	if !strings.Contains(buf.String(), "wrapped") {
		t.Error("Wrap of the zero Logger does not log")
	}
}

func TestPrettyText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatText), WithTimeLayout("none"))
	l.With(slog.String("cmd", "solve")).Warn("no solution",
		slog.Group("expr", slog.String("src", "x * 2"), slog.Int("pos", 4)),
		slog.Any("error", errors.New("boom")),
		slog.Any("value", nil))

	// Output to a buffer carries no color.
	want := "level=WARN msg=no solution cmd=solve expr.src=x * 2 expr.pos=4 error=boom value=null\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q\nwant     %q", got, want)
	}
}

func TestPrettyJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := Make(&buf, WithTimeLayout("none"))
	l.Logger = slog.New(l.Handler().WithGroup("cli"))
	l.Info("started", slog.Int("args", 2))

	want := "{\n  level: INFO,\n  msg: started,\n  cli.args: 2\n}\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestLogger_Concurrent(t *testing.T) {
	t.Parallel()

	var (
		buf bytes.Buffer
		mu  sync.Mutex
		wg  sync.WaitGroup
	)

	l := Make(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()

		return buf.Write(p)
	}), WithPretty(false))

	for range 8 {
		wg.Go(func() {
			for range 16 {
				l.Info("tick")
			}
		})
	}

	wg.Wait()

	if n := strings.Count(buf.String(), "tick"); n != 8*16 {
		t.Errorf("logged %d messages, want %d", n, 8*16)
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
