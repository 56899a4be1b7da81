// Package logger configures the structured logger shared by the aijay
// commands and the API handler.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	charm "github.com/charmbracelet/log"
)

// EnvLogLevel selects the log level. Accepts debug, info, warn and error.
const EnvLogLevel = "AIJAY_LOG_LEVEL"

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(New(os.Stderr, charm.InfoLevel))
}

// Default returns the process-wide logger.
func Default() *charm.Logger {
	return defaultLogger.Load().(*charm.Logger)
}

// SetDefault replaces the process-wide logger. A nil logger is ignored.
func SetDefault(l *charm.Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// New creates a logger writing to w at level.
func New(w io.Writer, level charm.Level) *charm.Logger {
	return charm.NewWithOptions(w, charm.Options{
		Prefix:          "aijay",
		Level:           level,
		ReportTimestamp: true,
	})
}

// ParseLevel maps a level name to a charm level. An empty name is info.
func ParseLevel(name string) (charm.Level, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	switch name {
	case "":
		return charm.InfoLevel, nil
	case "warning":
		name = "warn"
	}
	level, err := charm.ParseLevel(name)
	if err != nil {
		return charm.InfoLevel, fmt.Errorf("invalid log level %q. Supported log levels are debug, info, warn, error", name)
	}
	return level, nil
}

// FromEnv builds a logger for w using the level named by EnvLogLevel and
// installs it as the default. An invalid level falls back to info and is
// reported on the returned logger.
func FromEnv(w io.Writer) *charm.Logger {
	level, err := ParseLevel(os.Getenv(EnvLogLevel))
	l := New(w, level)
	if err != nil {
		l.Warn("ignoring log level", "env", EnvLogLevel, "err", err)
	}
	SetDefault(l)
	return l
}
