package common

import (
	"log/slog"
	"os"
)

// LogLevel represents logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// ToSlogLevel converts LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel maps a config string to a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

// Logger provides a centralized logging interface for graphmigrate
type Logger struct {
	*slog.Logger
	level LogLevel
}

// NewLogger creates a new structured logger with the specified level
func NewLogger(level LogLevel) *Logger {
	opts := &slog.HandlerOptions{
		Level: level.ToSlogLevel(),
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
		level:  level,
	}
}

// NewJSONLogger creates a structured logger with JSON output
func NewJSONLogger(level LogLevel) *Logger {
	opts := &slog.HandlerOptions{
		Level: level.ToSlogLevel(),
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
		level:  level,
	}
}

// NewColorLogger creates a structured logger with colorized terminal output
func NewColorLogger(level LogLevel) *Logger {
	opts := &slog.HandlerOptions{
		Level: level.ToSlogLevel(),
	}

	handler := NewColorHandler(os.Stdout, opts)
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
		level:  level,
	}
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

// With returns a logger carrying extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		level:  l.level,
	}
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
		level:  l.level,
	}
}

// WithBackend returns a logger with storage backend context
func (l *Logger) WithBackend(kind string) *Logger {
	return &Logger{
		Logger: l.Logger.With("backend", kind),
		level:  l.level,
	}
}

// WithVersion returns a logger with migration version context
func (l *Logger) WithVersion(version int) *Logger {
	return &Logger{
		Logger: l.Logger.With("version", version),
		level:  l.level,
	}
}

// WithPool returns a logger with connection pool context
func (l *Logger) WithPool(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("pool", name),
		level:  l.level,
	}
}

// WithOperation returns a logger with transfer operation context
func (l *Logger) WithOperation(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("operation", name),
		level:  l.level,
	}
}

// Global default logger instance
var defaultLogger = NewLogger(LogLevelInfo)

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	defaultLogger = logger
}

// GetLogger returns the default logger
func GetLogger() *Logger {
	return defaultLogger
}

// LogError logs an error with context
func LogError(msg string, err error, attrs ...any) {
	args := append([]any{"error", err}, attrs...)
	defaultLogger.Error(msg, args...)
}

// LogInfo logs informational message
func LogInfo(msg string, attrs ...any) {
	defaultLogger.Info(msg, attrs...)
}

// LogDebug logs debug message
func LogDebug(msg string, attrs ...any) {
	defaultLogger.Debug(msg, attrs...)
}

// LogWarn logs warning message
func LogWarn(msg string, attrs ...any) {
	defaultLogger.Warn(msg, attrs...)
}
