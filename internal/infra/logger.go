package infra

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// NewLogger builds the application logger and installs it as the slog
// default. Output goes to stderr and, when workDir is non-empty, to a
// log file inside it.
func NewLogger(level string, workDir string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	out := io.Writer(os.Stderr)
	if workDir != "" {
		logPath := filepath.Join(workDir, "app.log")
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			out = io.MultiWriter(os.Stderr, f)
		}
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
