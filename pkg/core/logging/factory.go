// ============================================================================
// taskdir - Control Task Discovery
// ============================================================================
//
// Package:     logging
// Description: Factory functions for creating zerolog-backed loggers
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

var (
	defaultsMu sync.RWMutex
	defaults   = DefaultLoggerConfig("")
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Component name, written as the "component" field
	ServiceName string

	// Log level (debug, info, warn, error)
	Level string

	// Output format: "json" or "text" (default: json)
	Format string

	// Output writer (default: stderr)
	Output io.Writer

	// Additional outputs (besides Output)
	AdditionalOutputs []io.Writer
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(serviceName string) LoggerConfig {
	return LoggerConfig{
		ServiceName: serviceName,
		Level:       "info",
		Format:      "json",
		Output:      os.Stderr,
	}
}

// Configure sets the process defaults used by New. Loggers created before the
// call keep their previous settings.
func Configure(cfg LoggerConfig) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()

	if cfg.Level == "" {
		cfg.Level = defaults.Level
	}
	if cfg.Format == "" {
		cfg.Format = defaults.Format
	}
	if cfg.Output == nil {
		cfg.Output = defaults.Output
	}
	defaults = cfg
}

// NewLogger creates a zerolog logger from the given configuration
func NewLogger(cfg LoggerConfig) zerolog.Logger {
	var output io.Writer = os.Stderr
	if cfg.Output != nil {
		output = cfg.Output
	}

	if cfg.Format == "text" || cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(output),
		}
	}

	if len(cfg.AdditionalOutputs) > 0 {
		writers := append([]io.Writer{output}, cfg.AdditionalOutputs...)
		output = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(output).
		Level(ParseLevel(cfg.Level).zerolog()).
		With().
		Timestamp()
	if cfg.ServiceName != "" {
		zl = zl.Str("component", cfg.ServiceName)
	}
	return zl.Logger()
}

// Logger wraps a zerolog logger with the key-value API used across packages
type Logger struct {
	zl   zerolog.Logger
	name string
}

// New creates a logger for a component using the process defaults
func New(name string) *Logger {
	defaultsMu.RLock()
	cfg := defaults
	defaultsMu.RUnlock()

	cfg.ServiceName = name
	return &Logger{
		zl:   NewLogger(cfg),
		name: name,
	}
}

// NewWithConfig creates a logger with an explicit configuration
func NewWithConfig(cfg LoggerConfig) *Logger {
	return &Logger{
		zl:   NewLogger(cfg),
		name: cfg.ServiceName,
	}
}

// Name returns the component name
func (l *Logger) Name() string {
	return l.name
}

// WithLevel returns a new logger with the specified level
func (l *Logger) WithLevel(level Level) *Logger {
	return &Logger{
		zl:   l.zl.Level(level.zerolog()),
		name: l.name,
	}
}

// With returns a child logger carrying the given key-value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		zl:   l.zl.With().Fields(toFields(keysAndValues...)).Logger(),
		name: l.name,
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.zl.Debug().Fields(toFields(keysAndValues...)).Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info().Fields(toFields(keysAndValues...)).Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.zl.Warn().Fields(toFields(keysAndValues...)).Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error().Fields(toFields(keysAndValues...)).Msg(msg)
}

// toFields converts key-value pairs to a field map. Non-string keys and a
// trailing key without value are dropped.
func toFields(keysAndValues ...interface{}) map[string]interface{} {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields[key] = err.Error()
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
