package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"warn", "warn", slog.LevelWarn},
		{"error", "ERROR", slog.LevelError},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidLevel(t *testing.T) {
	for _, s := range []string{"", "info", "TRACE", "warning"} {
		if !IsValidLevel(s) {
			t.Errorf("Expected %q to be valid", s)
		}
	}
	if IsValidLevel("verbose") {
		t.Error("Expected verbose to be invalid")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)

	logger.Debug("hidden")
	logger.Info("simulation stored", "substance", "Caffeine")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug message should be filtered at info level: %s", out)
	}
	if !strings.Contains(out, "simulation stored") || !strings.Contains(out, "substance=Caffeine") {
		t.Errorf("Expected info message with attributes, got %s", out)
	}
}

func TestNewLoggerTraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)

	logger.Log(context.Background(), LevelTrace, "request body")

	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("Expected TRACE label, got %s", buf.String())
	}
}
