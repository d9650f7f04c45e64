package log

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestOptions_SetConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		opt   Option
		check func(config) bool
	}{
		{"level", WithLevel(LevelWarn), func(c config) bool { return c.level == LevelWarn }},
		{"format", WithFormat(FormatText), func(c config) bool { return c.format == FormatText }},
		{"caller", WithCaller(true), func(c config) bool { return c.caller }},
		{"pretty", WithPretty(false), func(c config) bool { return !c.pretty }},
		{"nil output", WithOutput(nil), func(c config) bool { return c.output != nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Options tolerate a zero config without a mutex.
			if c := tt.opt(config{}); !tt.check(c) || c.mutex == nil {
				t.Errorf("option not applied: %+v", c)
			}
		})
	}
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	c := WithDefaults(nil)(WithLevel(LevelError)(config{}))

	if c.level != DefaultLevel || c.format != DefaultFormat ||
		c.caller != DefaultCaller || c.pretty != DefaultPretty || c.output == nil {
		t.Errorf("WithDefaults = %+v", c)
	}
}

func TestWithTimeLayout(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, 10, 15, 14, 30, 45, 123456789, time.UTC)

	tests := []struct {
		layout string
		want   string
	}{
		{"RFC3339", "2023-10-15T14:30:45Z"},
		{"rfc-3339-nano", "2023-10-15T14:30:45.123456789Z"},
		{"Kitchen", "2:30PM"},
		{"ms", "Oct 15 14:30:45.123"},
		{"DateOnly", "2023-10-15"},
		{"2006/01/02", "2023/10/15"},
		{"none", ""},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			t.Parallel()

			c := WithTimeLayout(tt.layout)(config{})
			if got := c.formatTime(now); got != tt.want {
				t.Errorf("formatTime = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{" Info ", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"info+2", LevelInfo + 2},
		{"bogus", DefaultLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevel_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level Level
		want  string
	}{
		{LevelTrace, "trace"},
		{LevelInfo, "info"},
		{LevelInfo + 2, "info+2"},
		{LevelError + 1, "error+1"},
		{LevelTrace - 2, "trace-2"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}

	// Every listed name parses back to its level.
	for name := range Levels() {
		if got := ParseLevel(name).String(); got != name {
			t.Errorf("ParseLevel(%q).String() = %q", name, got)
		}
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	if got := slices.Collect(Formats()); strings.Join(got, ",") != "json,text" {
		t.Errorf("Formats = %v", got)
	}

	for in, want := range map[string]Format{
		"json": FormatJSON, "TEXT": FormatText, " text ": FormatText, "xml": DefaultFormat,
	} {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %v, want %v", in, got, want)
		}
	}
}
