// Package logging contains the structured logger used across the feature extraction pipeline.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewLogger returns a logger that writes Info and above to stdout with UTC timestamps.
func NewLogger(name string) Logger {
	return &impl{name: name, level: NewAtomicLevelAt(INFO), inUTC: true, appenders: []Appender{NewStdoutAppender()}}
}

// NewBlankLogger returns a Debug level logger without appenders.
func NewBlankLogger(name string) Logger {
	return &impl{name: name, level: NewAtomicLevelAt(DEBUG), inUTC: true}
}

// NewTestLogger returns a Debug level logger that writes to tb.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also records every entry for assertions.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	logger := &impl{level: NewAtomicLevelAt(DEBUG)}
	logger.AddAppender(NewTestAppender(tb))

	core, logs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	logger.AddAppender(core)
	return logger, logs
}
