package logging

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// impl fans entries out to its appenders. Subloggers share the parent's appenders but carry their
// own dotted name and level.
type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
}

// callerDepth is the number of frames between runtime.Caller in emit and the user's call site.
const callerDepth = 2

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (imp *impl) enabled(level Level) bool {
	return level >= imp.level.Get()
}

// emit builds the entry and hands it to every appender. It must be called directly from the
// exported methods so the caller lookup lands on user code.
func (imp *impl) emit(level Level, msg string, fields []zapcore.Field) {
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	if pc, file, line, ok := runtime.Caller(callerDepth); ok {
		entry.Caller = zapcore.EntryCaller{Defined: true, PC: pc, File: file, Line: line}
	}
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// toFields pairs keys with the values following them. A trailing key without a value is kept with
// an error value.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func (imp *impl) Debug(args ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emit(DEBUG, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emit(DEBUG, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emit(DEBUG, msg, toFields(keysAndValues))
	}
}

func (imp *impl) Info(args ...interface{}) {
	if imp.enabled(INFO) {
		imp.emit(INFO, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Infof(template string, args ...interface{}) {
	if imp.enabled(INFO) {
		imp.emit(INFO, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	if imp.enabled(INFO) {
		imp.emit(INFO, msg, toFields(keysAndValues))
	}
}

func (imp *impl) Warn(args ...interface{}) {
	if imp.enabled(WARN) {
		imp.emit(WARN, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	if imp.enabled(WARN) {
		imp.emit(WARN, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(WARN) {
		imp.emit(WARN, msg, toFields(keysAndValues))
	}
}

func (imp *impl) Error(args ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emit(ERROR, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emit(ERROR, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emit(ERROR, msg, toFields(keysAndValues))
	}
}

// Fatal logs at error level regardless of the logger's level and exits the process.
func (imp *impl) Fatal(args ...interface{}) {
	imp.emit(ERROR, fmt.Sprint(args...), nil)
	os.Exit(1)
}
