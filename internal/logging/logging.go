// Package logging builds the process logger.
//
// Logs always go to stderr: in stdio mode stdout carries protocol responses and must not
// be interleaved with log lines.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/gcbaptista/mention-index/config"
)

// New creates a logger configured from settings, writing to stderr.
func New(settings config.LoggingSettings) (*logrus.Logger, error) {
	return NewWithWriter(settings, os.Stderr)
}

// NewWithWriter creates a logger configured from settings, writing to w.
func NewWithWriter(settings config.LoggingSettings, w io.Writer) (*logrus.Logger, error) {
	level := settings.Level
	if level == "" {
		level = "info"
	}
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", settings.Level, err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(parsedLevel)

	switch settings.Format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", settings.Format)
	}

	return logger, nil
}

// Component returns an entry tagged with the component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

// Discard returns an entry that drops everything. Used by tests and as a nil-safe default.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
