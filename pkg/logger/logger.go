// Package logger provides structured console logging with per-task context
package logger

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is the logging interface used across the build engine
type Logger interface {
	Info(message string, fields ...Field)
	Error(message string, fields ...Field)
	Warn(message string, fields ...Field)
	Debug(message string, fields ...Field)
	Success(message string, fields ...Field)
	WithTask(task string) Logger
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a new field
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// TaskLogger implements Logger with task awareness
type TaskLogger struct {
	logger   *logrus.Logger
	taskName string
	mu       sync.RWMutex
}

// ConsoleFormatter formats console log lines with a colored level and an
// optional [task] prefix, matching the one-line-per-step output style.
type ConsoleFormatter struct {
	TimestampFormat string
	DisableColors   bool
}

// Format implements logrus.Formatter
func (f *ConsoleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)

	var levelColor *color.Color
	var levelText string
	switch entry.Level {
	case logrus.ErrorLevel:
		levelColor = color.New(color.FgRed, color.Bold)
		levelText = "ERROR"
	case logrus.WarnLevel:
		levelColor = color.New(color.FgYellow, color.Bold)
		levelText = "WARN"
	case logrus.InfoLevel:
		levelColor = color.New(color.FgCyan)
		levelText = "INFO"
	case logrus.DebugLevel:
		levelColor = color.New(color.FgWhite, color.Faint)
		levelText = "DEBUG"
	default:
		levelColor = color.New(color.FgGreen)
		levelText = "INFO"
	}

	taskPrefix := ""
	if task, ok := entry.Data["task"]; ok {
		taskPrefix = fmt.Sprintf("[%s] ", color.New(color.FgBlue).Sprint(task))
		delete(entry.Data, "task")
	}

	var output string
	if f.DisableColors {
		output = fmt.Sprintf("[%s] %s: %s%s", timestamp, levelText, taskPrefix, entry.Message)
	} else {
		output = fmt.Sprintf("[%s] %s: %s%s", timestamp, levelColor.Sprint(levelText), taskPrefix, entry.Message)
	}

	if len(entry.Data) > 0 {
		fields := " {"
		first := true
		for k, v := range entry.Data {
			if !first {
				fields += ", "
			}
			fields += fmt.Sprintf("%s=%v", k, v)
			first = false
		}
		fields += "}"
		output += color.New(color.FgWhite, color.Faint).Sprint(fields)
	}

	return []byte(output + "\n"), nil
}

// CreateLogger creates a new console logger at the given level
func CreateLogger(logLevel string) Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.SetFormatter(&ConsoleFormatter{
		TimestampFormat: "15:04:05",
		DisableColors:   false,
	})

	return &TaskLogger{logger: log}
}

// CreateLoggerWithOutput creates a logger with custom output (for testing)
func CreateLoggerWithOutput(logLevel string, output io.Writer) Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.SetFormatter(&ConsoleFormatter{
		TimestampFormat: "15:04:05",
		DisableColors:   true,
	})
	log.SetOutput(output)

	return &TaskLogger{logger: log}
}

// WithTask creates a new logger with task context
func (l *TaskLogger) WithTask(task string) Logger {
	return &TaskLogger{
		logger:   l.logger,
		taskName: task,
	}
}

func (l *TaskLogger) convertFields(fields []Field) logrus.Fields {
	result := make(logrus.Fields)
	if l.taskName != "" {
		result["task"] = l.taskName
	}
	for _, f := range fields {
		result[f.Key] = f.Value
	}
	return result
}

// Info logs an info message
func (l *TaskLogger) Info(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.WithFields(l.convertFields(fields)).Info(message)
}

// Error logs an error message
func (l *TaskLogger) Error(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.WithFields(l.convertFields(fields)).Error(message)
}

// Warn logs a warning message
func (l *TaskLogger) Warn(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.WithFields(l.convertFields(fields)).Warn(message)
}

// Debug logs a debug message
func (l *TaskLogger) Debug(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.WithFields(l.convertFields(fields)).Debug(message)
}

// Success logs a success message (info level with a check mark)
func (l *TaskLogger) Success(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.WithFields(l.convertFields(fields)).Info("✅ " + message)
}

// NopLogger discards all messages; used as a default in tests
type NopLogger struct{}

func (NopLogger) Info(string, ...Field)    {}
func (NopLogger) Error(string, ...Field)   {}
func (NopLogger) Warn(string, ...Field)    {}
func (NopLogger) Debug(string, ...Field)   {}
func (NopLogger) Success(string, ...Field) {}
func (n NopLogger) WithTask(string) Logger { return n }
