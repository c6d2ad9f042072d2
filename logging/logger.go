package logging

// Logger is the leveled, structured logger passed through the pipeline. The w variants take
// alternating keys and values.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})

	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})

	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	Fatal(args ...interface{})

	SetLevel(level Level)
	GetLevel() Level
	// Sublogger returns a logger named "<name>.<subname>" writing to the same appenders. Its level
	// starts at the parent's and is changed independently.
	Sublogger(subname string) Logger
	AddAppender(appender Appender)
	Sync() error
}

var _ Logger = &impl{}
