// Package logger provides leveled logging for ragkit.
//
// Messages go through log/slog. By default only warnings and errors are
// written, as text to stderr. Verbose mode lowers the threshold to debug so
// users can follow the ingestion and retrieval pipeline. Setup can redirect
// output to a rotating JSON log file.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.RWMutex
	verbose bool
	level   = slog.LevelWarn
	output  io.Writer = &syncWriter{w: os.Stderr}
	jsonOut bool
	base    = build()
)

// build creates the slog logger for the current settings. Callers hold mu.
func build() *slog.Logger {
	lvl := level
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if jsonOut {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = &syncWriter{w: w}
	jsonOut = false
	base = build()
}

// SetLevel sets the minimum level written when verbose mode is off.
// Accepts debug, info, warn or error; anything else means warn.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(name)
	base = build()
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Setup configures level and destination. A non-empty path writes JSON
// records to a size-rotated file. The returned closer flushes that file.
func Setup(levelName, path string) io.Closer {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(levelName)
	if path == "" {
		base = build()
		return nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	output = file
	jsonOut = true
	base = build()
	return file
}

// Slog returns the underlying structured logger.
func Slog() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func logf(lvl slog.Level, format string, args ...any) {
	mu.RLock()
	l := base
	mu.RUnlock()
	ctx := context.Background()
	if !l.Enabled(ctx, lvl) {
		return
	}
	l.Log(ctx, lvl, fmt.Sprintf(format, args...))
}

// Debug logs a message at debug level.
func Debug(format string, args ...any) {
	logf(slog.LevelDebug, format, args...)
}

// Section logs a pipeline stage header at debug level.
func Section(name string) {
	logf(slog.LevelDebug, "=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	logf(slog.LevelInfo, format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	logf(slog.LevelWarn, format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	logf(slog.LevelError, format, args...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// syncWriter serialises writes from handlers rebuilt by concurrent setters.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
