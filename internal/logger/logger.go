// Package logger configures the process-wide structured logger.
//
// It wraps log/slog with a text handler on stderr. The level comes from the
// LOG_LEVEL environment variable (debug, info, warn, error) and can be
// raised to debug with SetVerbose.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// DefaultLogger is the global structured logger instance.
var DefaultLogger *slog.Logger

func init() {
	DefaultLogger = New(os.Stderr, LevelFromEnv())
	slog.SetDefault(DefaultLogger)
}

// New returns a text logger writing to w at level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// LevelFromEnv reads LOG_LEVEL, defaulting to info.
func LevelFromEnv() slog.Level {
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// SetLevel replaces DefaultLogger with one at the given level.
func SetLevel(level slog.Level) {
	DefaultLogger = New(os.Stderr, level)
	slog.SetDefault(DefaultLogger)
}

// SetVerbose enables debug-level logging when verbose is true.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(LevelFromEnv())
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Info logs at info level on DefaultLogger.
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// Debug logs at debug level on DefaultLogger.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// Warn logs at warn level on DefaultLogger.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// Error logs at error level on DefaultLogger.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}
