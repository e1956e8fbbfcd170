package logging

import (
	"log/slog"
	"testing"

	"github.com/houseflow/houseflow/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew_DefaultsToInfoJSON(t *testing.T) {
	logger := New(config.LoggingConfig{}, "test")
	if logger == nil || logger.Logger == nil {
		t.Fatal("New() returned a logger with a nil slog.Logger")
	}
	if !logger.Enabled(nil, slog.LevelInfo) {
		t.Error("default logger should be enabled at info level")
	}
	if logger.Enabled(nil, slog.LevelDebug) {
		t.Error("default logger should not be enabled at debug level")
	}
}

func TestWith_AddsAttributesWithoutMutatingOriginal(t *testing.T) {
	base := New(config.LoggingConfig{Level: "debug"}, "test")
	derived := base.With("component", "lighthouse")

	if derived == base {
		t.Error("With() should return a distinct Logger")
	}
}

func TestDefault_UsableBeforeConfigLoads(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}
