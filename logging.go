package physics

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates a JSON logger writing to stderr. The level is read from
// PHYSICS_LOG_LEVEL (DEBUG, INFO, WARN, ERROR) and defaults to WARN so a
// stepping world stays quiet.
func NewLogger() *slog.Logger {
	return newLogger(os.Stderr, getLogLevelFromEnv())
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func getLogLevelFromEnv() slog.Level {
	switch strings.ToUpper(os.Getenv("PHYSICS_LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
