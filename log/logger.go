/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides structured logging on top of github.com/ssgreg/logf.
package log

import (
	"os"

	"github.com/ssgreg/logf"
)

// FieldLogger writes messages with structured fields.
type FieldLogger interface {
	With(fields ...Field) FieldLogger
	WithLevel(level Level) FieldLogger

	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// LogfAdapter implements FieldLogger over *logf.Logger.
type LogfAdapter struct {
	Logger *logf.Logger
}

var _ FieldLogger = (*LogfAdapter)(nil)

// NewDisabledLogger returns a logger that drops everything.
func NewDisabledLogger() FieldLogger {
	return &LogfAdapter{Logger: logf.NewDisabledLogger()}
}

// NewLogger creates a logger writing entries asynchronously to the configured output.
// The returned function flushes pending entries and must be called before the process exits.
func NewLogger(cfg *Config) (logger FieldLogger, flush func()) {
	channel, closeChannel := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          newAppender(cfg),
		EnableSyncOnError: true,
	})
	l := logf.NewLogger(cfg.Level.logf(), channel).With(logf.Int("pid", os.Getpid()))
	if cfg.AddCaller {
		// Skip the adapter frame so that the caller of Info/Error is reported.
		l = l.WithCaller().WithCallerSkip(1)
	}
	return &LogfAdapter{Logger: l}, closeChannel
}

// With returns a child logger that adds fields to every entry.
func (l *LogfAdapter) With(fields ...Field) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.With(fields...)}
}

// WithLevel returns a child logger that additionally drops entries below level.
// The level can only be raised this way.
func (l *LogfAdapter) WithLevel(level Level) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.WithLevel(level.logf())}
}

// Debug logs at debug level.
func (l *LogfAdapter) Debug(msg string, fields ...Field) { l.Logger.Debug(msg, fields...) }

// Info logs at info level.
func (l *LogfAdapter) Info(msg string, fields ...Field) { l.Logger.Info(msg, fields...) }

// Warn logs at warn level.
func (l *LogfAdapter) Warn(msg string, fields ...Field) { l.Logger.Warn(msg, fields...) }

// Error logs at error level.
func (l *LogfAdapter) Error(msg string, fields ...Field) { l.Logger.Error(msg, fields...) }
