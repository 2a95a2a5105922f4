// Package logger provides the process-wide structured logger.
//
// Call sites pass a message followed by alternating key/value pairs:
//
//	logger.Info("scan finished", "root", root, "folders", n)
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

var (
	mu   sync.RWMutex
	root = newLogger("info", "text", os.Stderr)
)

func newLogger(level, format string, out io.Writer) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "shelfsync",
		Level:      lvl,
		Output:     out,
		JSONFormat: strings.EqualFold(format, "json"),
	})
}

// Configure replaces the root logger. Unknown levels fall back to info.
func Configure(level, format string) {
	SetOutput(level, format, os.Stderr)
}

// SetOutput is Configure with an explicit destination, used by tests.
func SetOutput(level, format string, out io.Writer) {
	l := newLogger(level, format, out)
	mu.Lock()
	root = l
	mu.Unlock()
}

// Get returns the root logger.
func Get() hclog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Named returns a sub-logger, e.g. logger.Named("catalog").
func Named(name string) hclog.Logger {
	return Get().Named(name)
}

// Writer adapts the logger for libraries that want an io.Writer (gin, gorm).
func Writer() io.Writer {
	return Get().StandardWriter(&hclog.StandardLoggerOptions{InferLevels: true})
}

// Info logs informational messages
func Info(msg string, args ...interface{}) {
	Get().Info(msg, args...)
}

// Warn logs warning messages
func Warn(msg string, args ...interface{}) {
	Get().Warn(msg, args...)
}

// Error logs error messages
func Error(msg string, args ...interface{}) {
	Get().Error(msg, args...)
}

// Debug logs debug messages
func Debug(msg string, args ...interface{}) {
	Get().Debug(msg, args...)
}
