package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"sigcore/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":       zapcore.InfoLevel,
		"debug":  zapcore.DebugLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewHonoursLevel(t *testing.T) {
	logger, err := New(config.Log{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error should be enabled at warn level")
	}

	console, err := New(config.Log{Level: "debug", Format: "console"})
	if err != nil {
		t.Fatalf("New console: %v", err)
	}
	if !console.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug should be enabled")
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New(config.Log{Format: "xml"}); err == nil {
		t.Fatalf("expected format error")
	}
	if _, err := New(config.Log{Level: "chatty"}); err == nil {
		t.Fatalf("expected level error")
	}
}

func TestNop(t *testing.T) {
	if Nop().Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("nop logger should be disabled")
	}
}
