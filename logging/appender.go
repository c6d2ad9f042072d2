package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the format used for the timestamp of every log line.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// ConsoleAppender writes tab separated log lines to an output file (normally stdout).
type ConsoleAppender struct {
	out *os.File
}

// NewStdoutAppender creates a new appender that writes to stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewFileAppender creates a new appender that writes to the given file.
func NewFileAppender(file *os.File) ConsoleAppender {
	return ConsoleAppender{file}
}

// Write outputs the log entry to the underlying stream.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatEntry(entry, fields)
	fmt.Fprintln(appender.out, line)
	return err
}

// formatEntry renders an entry as tab separated time, level, logger name, caller, message and
// the fields as one JSON object. Fields keep their order. On an encoding error the line is
// returned without fields.
func formatEntry(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	parts := make([]string, 0, 6)
	parts = append(parts, entry.Time.Format(DefaultTimeFormatStr), strings.ToUpper(entry.Level.String()), entry.LoggerName)
	if entry.Caller.Defined {
		parts = append(parts, callerToString(&entry.Caller))
	}
	parts = append(parts, entry.Message)
	if len(fields) == 0 {
		return strings.Join(parts, "\t"), nil
	}

	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return strings.Join(parts, "\t"), err
	}
	defer buf.Free()
	parts = append(parts, buf.String())
	return strings.Join(parts, "\t"), nil
}

// Sync flushes the underlying file.
func (appender ConsoleAppender) Sync() error {
	// stdout cannot be fsynced on every platform; treat that as success.
	if err := appender.out.Sync(); err != nil && appender.out != os.Stdout {
		return err
	}
	return nil
}

// callerToString returns the caller as "<package>/<file>:<line>", e.g. "superpoint/extractor.go:112".
func callerToString(caller *zapcore.EntryCaller) string {
	// runtime.Caller paths always use '/'. Keep the last two elements.
	file := caller.File
	if last := strings.LastIndexByte(file, '/'); last >= 0 {
		if prev := strings.LastIndexByte(file[:last], '/'); prev >= 0 {
			file = file[prev+1:]
		}
	}
	return fmt.Sprintf("%s:%d", file, caller.Line)
}
