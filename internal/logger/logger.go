package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Log is nil until Init runs; the helpers below are no-ops in that case so
// library code can log unconditionally.
var Log *slog.Logger

var logFile *os.File

func parseLevel(level string) slog.Level {
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

// Init opens path for appending and attaches a text handler to it. The
// terminal belongs to the UI, so an empty path discards all records instead
// of falling back to stdout.
func Init(level string, path string) error {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if path == "" {
		Log = slog.New(slog.NewTextHandler(io.Discard, opts))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f
	Log = slog.New(slog.NewTextHandler(f, opts))
	return nil
}

// InitWriter is used by tests and by the CLI's verbose mode.
func InitWriter(level string, w io.Writer) {
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// Mask keeps the first and last rune of a secret.
func Mask(v string) string {
	if v == "" {
		return ""
	}
	if utf8.RuneCountInString(v) <= 2 {
		return "<redacted>"
	}
	first, _ := utf8.DecodeRuneInString(v)
	last, _ := utf8.DecodeLastRuneInString(v)
	return string(first) + "*****" + string(last)
}

func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}
