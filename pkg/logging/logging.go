package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shaneisley/taskslot/pkg/tasks"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger wraps slog.Logger with component context
type Logger struct {
	*slog.Logger
	component string
}

// Options controls where and how log records are written
type Options struct {
	Level  LogLevel
	Format string // "text" or "json"
	Writer io.Writer
}

// New creates a structured logger for a component
func New(component string, opts Options) *Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(writer, handlerOpts)
	}

	return &Logger{
		Logger:    slog.New(handler),
		component: component,
	}
}

// Discard returns a logger that drops every record
func Discard() *Logger {
	return New("discard", Options{Writer: io.Discard})
}

func parseLevel(level LogLevel) slog.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn, "warning":
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent creates a logger with a different component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger,
		component: component,
	}
}

// Debug logs a debug message with component context
func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, append([]any{"component", l.component}, args...)...)
}

// Info logs an info message with component context
func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, append([]any{"component", l.component}, args...)...)
}

// Warn logs a warning message with component context
func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, append([]any{"component", l.component}, args...)...)
}

// Error logs an error message with component context
func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(msg, append([]any{"component", l.component}, args...)...)
}

// LogError logs a failed operation with context
func (l *Logger) LogError(operation string, err error, context ...any) {
	args := append([]any{"operation", operation, "error", err.Error()}, context...)
	l.Error("operation failed", args...)
}

// LogOutcome logs a scheduling outcome. Transport and server failures are errors.
func (l *Logger) LogOutcome(outcome tasks.Outcome, taskCount int) {
	switch outcome.Kind {
	case tasks.TransportFailure:
		l.Error("network error prevented the completion of the request",
			"outcome", outcome.Kind.String(),
			"tasks", taskCount,
			"error", errorString(outcome.Cause))
	case tasks.ServerFailure:
		l.Error("scheduling failed on the server",
			"outcome", outcome.Kind.String(),
			"status", outcome.Status,
			"tasks", taskCount)
	default:
		l.Info("scheduling finished",
			"outcome", outcome.Kind.String(),
			"status", outcome.Status,
			"tasks", taskCount,
			"message", outcome.Message)
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
