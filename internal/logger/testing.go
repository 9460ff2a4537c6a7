package logger

import (
	"log/slog"
	"os"
)

// NewTestLogger returns a text logger for tests that stays quiet below WARN.
// TEST_LOG_LEVEL picks another level; TEST_DEBUG is shorthand for DEBUG.
func NewTestLogger() *slog.Logger {
	level := ParseLevel(os.Getenv("TEST_LOG_LEVEL"), slog.LevelWarn)
	if os.Getenv("TEST_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
