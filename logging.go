// logging.go: pluggable logging with a leveled console implementation
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/agilira/go-timecache"
)

// Logger defines the pluggable logging interface for the replay engine.
//
// The engine never logs through a concrete type: every component receives a
// Logger, so callers can plug in any framework by writing a small adapter.
// Structured context is passed as alternating key-value pairs.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, args ...any)

	// Info logs an info message with optional key-value pairs
	Info(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs
	Warn(msg string, args ...any)

	// Error logs an error message with optional key-value pairs
	Error(msg string, args ...any)

	// With returns a new logger with persistent context key-value pairs
	With(args ...any) Logger
}

// LogLevel orders console logger severities.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel maps a settings string to a LogLevel. Unknown values
// fall back to info so a bad settings file never silences errors.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error", "critical":
		return LevelError
	default:
		return LevelInfo
	}
}

// String returns the lowercase name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ConsoleLogger writes leveled, timestamped lines to a writer.
//
// Timestamps come from the go-timecache cached clock: log lines are emitted
// on every step boundary and plugin invocation, and the cached time keeps
// that off the syscall path. The level gate is atomic so the settings
// watcher can change it while a pipeline is running.
type ConsoleLogger struct {
	level  *atomic.Int32
	mu     *sync.Mutex
	out    io.Writer
	fields []any
}

// NewConsoleLogger creates a console logger writing to out at the given level.
// A nil writer defaults to stderr.
func NewConsoleLogger(out io.Writer, level LogLevel) *ConsoleLogger {
	if out == nil {
		out = os.Stderr
	}
	lv := &atomic.Int32{}
	lv.Store(int32(level))
	return &ConsoleLogger{level: lv, mu: &sync.Mutex{}, out: out}
}

// SetLevel changes the minimum emitted level. Safe for concurrent use;
// the settings watcher calls this on hot reload.
func (c *ConsoleLogger) SetLevel(level LogLevel) {
	c.level.Store(int32(level))
}

// Level returns the current minimum emitted level.
func (c *ConsoleLogger) Level() LogLevel {
	return LogLevel(c.level.Load())
}

func (c *ConsoleLogger) log(level LogLevel, msg string, args ...any) {
	if level < LogLevel(c.level.Load()) {
		return
	}
	var b strings.Builder
	b.WriteString(timecache.CachedTime().Format("2006-01-02T15:04:05.000Z07:00"))
	b.WriteString(" [")
	b.WriteString(strings.ToUpper(level.String()))
	b.WriteString("] ")
	b.WriteString(msg)
	writePairs(&b, c.fields)
	writePairs(&b, args)
	b.WriteByte('\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, b.String())
}

func writePairs(b *strings.Builder, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(b, " %v=?", args[len(args)-1])
	}
}

// Debug implements Logger
func (c *ConsoleLogger) Debug(msg string, args ...any) { c.log(LevelDebug, msg, args...) }

// Info implements Logger
func (c *ConsoleLogger) Info(msg string, args ...any) { c.log(LevelInfo, msg, args...) }

// Warn implements Logger
func (c *ConsoleLogger) Warn(msg string, args ...any) { c.log(LevelWarn, msg, args...) }

// Error implements Logger
func (c *ConsoleLogger) Error(msg string, args ...any) { c.log(LevelError, msg, args...) }

// With implements Logger. The returned logger shares the writer, mutex and
// level gate, so SetLevel on the root affects derived loggers too.
func (c *ConsoleLogger) With(args ...any) Logger {
	fields := make([]any, 0, len(c.fields)+len(args))
	fields = append(fields, c.fields...)
	fields = append(fields, args...)
	return &ConsoleLogger{level: c.level, mu: c.mu, out: c.out, fields: fields}
}

// NoOpLogger discards all log messages. Useful for tests and for callers
// that route engine output elsewhere.
type NoOpLogger struct{}

// NewNoOpLogger creates a new no-operation logger.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

// Debug implements Logger interface (no-op)
func (n *NoOpLogger) Debug(msg string, args ...any) {}

// Info implements Logger interface (no-op)
func (n *NoOpLogger) Info(msg string, args ...any) {}

// Warn implements Logger interface (no-op)
func (n *NoOpLogger) Warn(msg string, args ...any) {}

// Error implements Logger interface (no-op)
func (n *NoOpLogger) Error(msg string, args ...any) {}

// With implements Logger interface (no-op)
func (n *NoOpLogger) With(args ...any) Logger { return n }

// DefaultLogger returns the logger used when a caller passes nil.
func DefaultLogger() Logger {
	return NewConsoleLogger(os.Stderr, LevelInfo)
}

// TestLogger captures log messages for assertions in tests.
type TestLogger struct {
	mu       sync.RWMutex
	Messages []TestLogMessage
}

// TestLogMessage represents a captured log message.
type TestLogMessage struct {
	Level   string
	Message string
	Args    []any
}

// NewTestLogger creates a new capturing test logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{Messages: make([]TestLogMessage, 0)}
}

func (t *TestLogger) capture(level, msg string, args []any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = append(t.Messages, TestLogMessage{Level: level, Message: msg, Args: args})
}

// Debug implements Logger interface (captures message)
func (t *TestLogger) Debug(msg string, args ...any) { t.capture("DEBUG", msg, args) }

// Info implements Logger interface (captures message)
func (t *TestLogger) Info(msg string, args ...any) { t.capture("INFO", msg, args) }

// Warn implements Logger interface (captures message)
func (t *TestLogger) Warn(msg string, args ...any) { t.capture("WARN", msg, args) }

// Error implements Logger interface (captures message)
func (t *TestLogger) Error(msg string, args ...any) { t.capture("ERROR", msg, args) }

// With implements Logger interface. Context chaining is not needed for
// assertions, so the same instance keeps capturing.
func (t *TestLogger) With(args ...any) Logger { return t }

// HasMessage checks whether a message with the given level and text was captured.
func (t *TestLogger) HasMessage(level, message string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, msg := range t.Messages {
		if msg.Level == level && msg.Message == message {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (t *TestLogger) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = t.Messages[:0]
}
