// Package observability defines shared logging and metrics primitives for the pipeline.
package observability

import (
	"fmt"
	"log"
	"strings"
)

// Logger captures structured logging behaviours shared across layers.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key/value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for constructing a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

var defaultLogger Logger = noopLogger{}

// SetLogger overrides the global logger used by the pipeline.
func SetLogger(logger Logger) {
	if logger == nil {
		defaultLogger = noopLogger{}
		return
	}
	defaultLogger = logger
}

// Log returns the current global logger instance.
func Log() Logger {
	return defaultLogger
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}

// StdLogger adapts a stdlib log.Logger to the Logger interface.
type StdLogger struct {
	Out     *log.Logger
	Verbose bool
}

// NewStdLogger wraps out; verbose enables debug output.
func NewStdLogger(out *log.Logger, verbose bool) *StdLogger {
	return &StdLogger{Out: out, Verbose: verbose}
}

// Debug writes a debug line when verbose logging is enabled.
func (l *StdLogger) Debug(msg string, fields ...Field) {
	if l == nil || l.Out == nil || !l.Verbose {
		return
	}
	l.Out.Printf("DEBUG %s%s", msg, renderFields(fields))
}

// Info writes an informational line.
func (l *StdLogger) Info(msg string, fields ...Field) {
	if l == nil || l.Out == nil {
		return
	}
	l.Out.Printf("INFO %s%s", msg, renderFields(fields))
}

// Error writes an error line.
func (l *StdLogger) Error(msg string, fields ...Field) {
	if l == nil || l.Out == nil {
		return
	}
	l.Out.Printf("ERROR %s%s", msg, renderFields(fields))
}

func renderFields(fields []Field) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", key, f.Value))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
