package utils

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02T15:04:05Z07:00"

var logger = log.New()

// init sets up JSON logs on stdout at info level
func init() {
	logger.SetFormatter(&log.JSONFormatter{TimestampFormat: timestampFormat})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(log.InfoLevel)
}

// ConfigureLogger applies the configured level and, outside production, a human readable formatter
func ConfigureLogger(level string, pretty bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)

	if pretty {
		logger.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	} else {
		logger.SetFormatter(&log.JSONFormatter{TimestampFormat: timestampFormat})
	}
	return nil
}

// SetLogOutput redirects every log line to w
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

func entry(fields map[string]any) *log.Entry {
	return logger.WithField("app", "auctions").WithFields(fields)
}

// Debug logs a message at debug level with optional fields
func Debug(message string, fields map[string]any) {
	entry(fields).Debug(message)
}

// Info logs a message at info level with optional fields
func Info(message string, fields map[string]any) {
	entry(fields).Info(message)
}

// Warn logs a message at warning level with optional fields
func Warn(message string, fields map[string]any) {
	entry(fields).Warn(message)
}

// Error logs a message at error level with optional fields
func Error(message string, fields map[string]any) {
	entry(fields).Error(message)
}
