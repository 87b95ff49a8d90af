// internal/logger/logger.go
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

// Init initializes the logger
func Init() {
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	base.SetLevel(logrus.InfoLevel)
}

// SetOutput sets the output for all loggers
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// SetLevel sets the log level
func SetLevel(levelStr string) {
	switch strings.ToLower(levelStr) {
	case "debug":
		base.SetLevel(logrus.DebugLevel)
	case "info":
		base.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		base.SetLevel(logrus.WarnLevel)
	case "error":
		base.SetLevel(logrus.ErrorLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}
}

// WithRequest returns an entry tagged with the given request ID
func WithRequest(id string) *logrus.Entry {
	return base.WithField("req_id", id)
}

// WithFields returns an entry carrying the given structured fields
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return base.WithFields(logrus.Fields(fields))
}

var (
	writerOnce sync.Once
	writer     *io.PipeWriter
)

// Writer returns the shared writer that logs each line at info level.
// It is created once and lives for the rest of the process.
func Writer() io.Writer {
	writerOnce.Do(func() {
		writer = base.WriterLevel(logrus.InfoLevel)
	})
	return writer
}

// Debug logs a debug message
func Debug(format string, v ...interface{}) {
	base.Debugf(format, v...)
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	base.Infof(format, v...)
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	base.Warnf(format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	base.Errorf(format, v...)
}
