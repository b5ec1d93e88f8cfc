package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields carries structured context attached to log entries.
type Fields map[string]any

// Logger is the logging interface used throughout the module.
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	WithFields(fields Fields) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// NewDefaultLogger creates a logger writing text output to stderr at info level.
func NewDefaultLogger() Logger {
	return NewLogger(os.Stderr, logrus.InfoLevel)
}

// NewNopLogger creates a logger that discards everything. Useful in tests.
func NewNopLogger() Logger {
	return NewLogger(io.Discard, logrus.PanicLevel)
}

// NewLogger creates a logger with an explicit output and level.
func NewLogger(out io.Writer, level logrus.Level) Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) withFields(fields []Fields) *logrus.Entry {
	entry := l.entry
	for _, f := range fields {
		entry = entry.WithFields(logrus.Fields(f))
	}
	return entry
}

func (l *logrusLogger) Debug(msg string, fields ...Fields) {
	l.withFields(fields).Debug(msg)
}

func (l *logrusLogger) Info(msg string, fields ...Fields) {
	l.withFields(fields).Info(msg)
}

func (l *logrusLogger) Warn(msg string, fields ...Fields) {
	l.withFields(fields).Warn(msg)
}

func (l *logrusLogger) Error(err error, msg string, fields ...Fields) {
	entry := l.withFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewDefaultLogger()
)

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the process-wide logger.
func GetGlobalLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// WithFields returns the global logger scoped with fields.
func WithFields(fields Fields) Logger {
	return GetGlobalLogger().WithFields(fields)
}

// Debug logs at debug level using the global logger.
func Debug(msg string, fields ...Fields) {
	GetGlobalLogger().Debug(msg, fields...)
}

// Info logs at info level using the global logger.
func Info(msg string, fields ...Fields) {
	GetGlobalLogger().Info(msg, fields...)
}

// Warn logs at warn level using the global logger.
func Warn(msg string, fields ...Fields) {
	GetGlobalLogger().Warn(msg, fields...)
}

// Error logs at error level using the global logger.
func Error(err error, msg string, fields ...Fields) {
	GetGlobalLogger().Error(err, msg, fields...)
}
