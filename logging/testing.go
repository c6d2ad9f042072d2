package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that writes through tb.Log, so log lines are attributed to
// the running test even when tests run in parallel. Write calls tb.Helper so the reported
// location is the logging call site rather than this file.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write logs the formatted entry to the test.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := formatEntry(entry, fields)
	tapp.tb.Log(line)
	return err
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}
