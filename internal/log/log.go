// Package log provides structured logging for the jamnode core. It wraps
// Go's log/slog with per-subsystem child loggers (safrole, pvm, stf, ...).
package log

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jamnode/jamcore/internal/oracle"
)

// Logger wraps slog.Logger with jamnode-specific context.
type Logger struct {
	inner *slog.Logger
}

var defaultLogger *Logger

func init() {
	defaultLogger = New(slog.LevelInfo)
}

// New creates a Logger that writes JSON to stderr at the given level.
func New(level slog.Level) *Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &Logger{inner: slog.New(h)}
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Default returns the current package-level default logger.
func Default() *Logger {
	return defaultLogger
}

// Module returns a child logger with an additional "module" attribute, e.g.
// log.Default().Module("safrole").
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name)}
}

// With returns a child logger with additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

// Block returns a child logger carrying the "slot" and "header" attributes
// of the block currently being processed by the state-transition function,
// so every line logged while applying one block (across disputes,
// assurances, guarantees, ...) is attributable to it without each call site
// re-specifying slot/header by hand.
func (l *Logger) Block(slot uint32, headerHash oracle.Hash) *Logger {
	return &Logger{inner: l.inner.With("slot", slot, "header", fmt.Sprintf("%x", headerHash))}
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }
