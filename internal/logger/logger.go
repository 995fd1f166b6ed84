// Package logger provides the process-wide logger for the Sercha RAG service.
// Info, Warn and Error are always written. Debug and Section are written only
// in verbose mode, which traces the retrieval and generation pipeline.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Output formats accepted by SetFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	log     = newLogrus()
)

func newLogrus() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(textFormatter())
	return l
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{FullTimestamp: true}
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log.SetOutput(w)
}

// SetFormat selects text or JSON output.
func SetFormat(format string) error {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(format) {
	case "", FormatText:
		log.SetFormatter(textFormatter())
	case FormatJSON:
		log.SetFormatter(jsonFormatter())
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// With returns an entry carrying request-scoped fields.
func With(fields map[string]any) *logrus.Entry {
	mu.RLock()
	defer mu.RUnlock()
	return log.WithFields(logrus.Fields(fields))
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debugf(format, args...)
}

// Section logs a pipeline stage header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debugf("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Infof(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warnf(format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Errorf(format, args...)
}
