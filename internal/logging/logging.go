// Package logging builds the application's structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup creates a configured slog.Logger.
// format: "json" or "text" (defaults to "json" if empty)
// level: "debug", "info", "warn" or "error" (defaults to "info")
// If w is nil, writes to os.Stdout.
func Setup(format, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With(slog.String("service", "scorekeeper"))
}

// ParseLevel converts a level name to a slog.Level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
