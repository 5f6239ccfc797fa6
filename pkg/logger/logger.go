// Package logger provides a leveled logging interface backed by logrus.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger defines the logging interface
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
}

// New creates a logger writing to stdout at the level named by LOG_LEVEL.
func New() Logger {
	return NewWithLevel(os.Getenv("LOG_LEVEL"))
}

// NewWithLevel creates a logger writing to stdout at the given level.
// Unknown levels fall back to info.
func NewWithLevel(level string) Logger {
	l := logrus.New()
	l.SetLevel(ParseLevel(level))
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetOutput(os.Stdout)
	return l
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// ParseLevel converts a string log level to a logrus level.
func ParseLevel(levelStr string) logrus.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// IsKnownLevel reports whether levelStr names a supported level.
func IsKnownLevel(levelStr string) bool {
	switch strings.ToLower(levelStr) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}
