// Package logger builds the process-wide slog.Logger every other package
// takes as a constructor argument, rather than reading a package global.
package logger

import (
	"log/slog"
	"os"

	"github.com/xahau-payroll/payroll-engine/internal/config"
)

// NewLogger builds a slog.Logger writing to stdout: logfmt by default,
// json when cfg.Format == "json"; an unrecognized cfg.Level falls back to
// info.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
