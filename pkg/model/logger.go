package model

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger defines the interface for logging operations
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	IsLevelEnabled(level LogLevel) bool
}

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel maps "debug", "info", "warn" and "error" to a LogLevel.
// Anything else yields LogLevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) charmLevel() log.Level {
	switch l {
	case LogLevelDebug:
		return log.DebugLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// DefaultLogger implements the Logger interface on top of charmbracelet/log
type DefaultLogger struct {
	level  LogLevel
	logger *log.Logger
}

// NewDefaultLogger creates a new DefaultLogger writing to stderr with the specified log level
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return NewDefaultLoggerWithWriter(os.Stderr, level, true)
}

// NewDefaultLoggerWithWriter creates a DefaultLogger writing to w
func NewDefaultLoggerWithWriter(w io.Writer, level LogLevel, timestamps bool) *DefaultLogger {
	return &DefaultLogger{
		level: level,
		logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: timestamps,
			Level:           level.charmLevel(),
		}),
	}
}

// With returns a logger that attaches the key/value pairs to every message
func (l *DefaultLogger) With(keyvals ...interface{}) *DefaultLogger {
	return &DefaultLogger{
		level:  l.level,
		logger: l.logger.With(keyvals...),
	}
}

// SetLevel changes the minimum level that is written
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level = level
	l.logger.SetLevel(level.charmLevel())
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Info logs an informational message
func (l *DefaultLogger) Info(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Warn logs a warning message
func (l *DefaultLogger) Warn(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error logs an error message
func (l *DefaultLogger) Error(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// IsLevelEnabled returns true if the given log level is enabled
func (l *DefaultLogger) IsLevelEnabled(level LogLevel) bool {
	return l.level <= level
}

// NoOpLogger is a logger implementation that discards all log messages
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(format string, args ...interface{}) {}

func (l *NoOpLogger) Info(format string, args ...interface{}) {}

func (l *NoOpLogger) Warn(format string, args ...interface{}) {}

func (l *NoOpLogger) Error(format string, args ...interface{}) {}

// IsLevelEnabled always returns false for NoOpLogger
func (l *NoOpLogger) IsLevelEnabled(level LogLevel) bool {
	return false
}

var (
	// DefaultLoggerInstance is the default logger used by the package
	DefaultLoggerInstance Logger = NewDefaultLogger(LogLevelInfo)
)

// SetDefaultLogger sets the default logger instance
func SetDefaultLogger(logger Logger) {
	DefaultLoggerInstance = logger
}

// GetDefaultLogger returns the current default logger instance
func GetDefaultLogger() Logger {
	return DefaultLoggerInstance
}
