// Package common provides the shared logging infrastructure and small
// utilities used across the calbatch tool.
//
// The logging system is built on logrus with a custom output writer that
// routes error-level lines to stderr while everything else goes to stdout.
// Keeping the streams separated means shell pipelines and log collectors can
// treat per-item remote failures differently from the running progress output
// without parsing every line.
//
// The package exposes a global Logger instance so that every package logs
// through the same formatter and output routing. Commands reconfigure the
// level and format once at startup via NewLogger/Apply.
package common

import (
	"bytes"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggerConfig contains the knobs exposed on the command line for the
// global logger.
type LoggerConfig struct {
	Level  LogLevel // minimum log level, defaults to info
	Format string   // "json" or "text"
}

// DefaultLoggerConfig returns a logger config with sensible defaults:
// info level, text format with full timestamps.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:  LogLevelInfo,
		Format: "text",
	}
}

// OutputSplitter routes formatted log lines to stdout or stderr based on
// their level. Lines containing the logrus error marker go to stderr, all
// other lines go to stdout. The match operates on the formatted output so it
// works with both the text and JSON formatters.
type OutputSplitter struct{}

// Write implements io.Writer for the OutputSplitter.
func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the global logger instance shared by all calbatch packages.
// It is configured with the OutputSplitter at package initialization and can
// be further customized through Configure.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
	Logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})
}

// Configure applies a LoggerConfig to the global Logger. Unknown levels fall
// back to info, unknown formats fall back to text.
func Configure(config LoggerConfig) {
	applyConfig(Logger, config)
}

// NewLogger creates a new, independently configured logger instance. The
// global Logger is sufficient for the CLI; NewLogger exists so tests can
// capture output without touching global state.
func NewLogger(config LoggerConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&OutputSplitter{})
	applyConfig(logger, config)
	return logger
}

func applyConfig(logger *logrus.Logger, config LoggerConfig) {
	switch config.Level {
	case LogLevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LogLevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LogLevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}
}
