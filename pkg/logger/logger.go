// Package logger provides the structured logger shared by all services.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls logger construction at startup.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Format is "json" or "text". Defaults to text.
	Format string
	// Output is "stdout" or "stderr". Defaults to stdout.
	Output string
}

// Logger wraps logrus with a component field so every line identifies its
// origin.
type Logger struct {
	base  *logrus.Logger
	entry *logrus.Entry
}

// New builds a logger from config.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch cfg.Format {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch cfg.Output {
	case "stderr":
		base.SetOutput(os.Stderr)
	default:
		base.SetOutput(os.Stdout)
	}

	return &Logger{base: base, entry: logrus.NewEntry(base)}
}

// NewDefault returns an info-level text logger tagged with the given
// component name. Services use it as a fallback when no logger is injected.
func NewDefault(component string) *Logger {
	log := New(LoggingConfig{})
	return log.WithComponent(component)
}

// WithComponent returns a logger carrying a component field.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{base: l.base, entry: l.entry.WithField("component", component)}
}

// WithField returns a logger carrying an extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{base: l.base, entry: l.entry.WithField(key, value)}
}

// WithError returns a logger carrying the error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{base: l.base, entry: l.entry.WithError(err)}
}

// SetOutput redirects all output, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

func (l *Logger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
