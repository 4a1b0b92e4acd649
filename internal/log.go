package internal

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

var levelNames = map[string]LogLevel{
	"ERROR": LogLevelError,
	"WARN":  LogLevelWarn,
	"INFO":  LogLevelInfo,
	"DEBUG": LogLevelDebug,
	"TRACE": LogLevelTrace,
}

// Logger provides leveled logging with an optional component tag
type Logger struct {
	level     LogLevel
	component string
	out       *log.Logger
}

// NewLogger creates a new logger with the specified level
func NewLogger(level LogLevel) *Logger {
	return &Logger{level: level, out: log.Default()}
}

// NewDefaultLogger creates a logger based on LOG_LEVEL environment variable
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLevel(os.Getenv("LOG_LEVEL")))
}

// ParseLevel maps a level name to a LogLevel, defaulting to INFO
func ParseLevel(name string) LogLevel {
	if level, ok := levelNames[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return level
	}
	return LogLevelInfo
}

// With returns a logger that tags every line with the given component
func (l *Logger) With(component string) *Logger {
	return &Logger{level: l.level, component: component, out: l.out}
}

// SetOutput redirects the logger, mostly for tests
func (l *Logger) SetOutput(out *log.Logger) {
	l.out = out
}

func (l *Logger) emit(level LogLevel, tag, format string, args ...interface{}) {
	if l.level < level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		l.out.Printf("[%s] [%s] %s", tag, l.component, msg)
		return
	}
	l.out.Printf("[%s] %s", tag, msg)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(LogLevelError, "ERROR", format, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit(LogLevelWarn, "WARN", format, args...)
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(LogLevelInfo, "INFO", format, args...)
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.emit(LogLevelDebug, "DEBUG", format, args...)
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	l.emit(LogLevelTrace, "TRACE", format, args...)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// Global logger instance
var DefaultLogger = NewDefaultLogger()
