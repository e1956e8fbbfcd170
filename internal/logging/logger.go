// Package logging wraps log/slog with Houseflow-specific defaults.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/houseflow/houseflow/internal/config"
)

// Logger wraps slog.Logger with default fields and level filtering.
//
// Thread Safety: all methods are safe for concurrent use from multiple
// goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a Logger configured from cfg, always writing to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "houseflow"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a logger usable before configuration is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}
