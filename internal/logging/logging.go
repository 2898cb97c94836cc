// Package logging provides forge's logging infrastructure built on
// charmbracelet/log.
//
// All log output goes to stderr; stdout is reserved for command output and
// for the console streams of background actions.
//
// Usage:
//
//	// During CLI initialization (PersistentPreRunE):
//	logging.Setup(verbose, quiet, jsonFormat)
//
//	// In each package:
//	logger := logging.New("action")
//	logger.Info("process started", "pid", pid)
//
// Setup must be called before New. charmbracelet/log copies the default
// logger's state when a child is created, so later Setup calls do not reach
// loggers that already exist.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Setup configures the global logging defaults. Call once during CLI
// initialization. verbose selects Debug, quiet selects Error and wins over
// verbose, jsonFormat switches to the NDJSON formatter.
func Setup(verbose, quiet, jsonFormat bool) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	if quiet {
		level = log.ErrorLevel
	}

	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	if jsonFormat {
		log.SetFormatter(log.JSONFormatter)
	} else {
		log.SetFormatter(log.TextFormatter)
	}
}

// New creates a logger with the given component prefix. An empty component
// produces a logger without a prefix.
func New(component string) *log.Logger {
	return log.WithPrefix(component)
}

// Discard returns a logger that drops everything. Used as the fallback for
// components constructed without a logger in tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// ParseLevel maps a user-supplied level name to a log level. It accepts the
// charmbracelet names plus "warning" and "err".
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return log.WarnLevel, nil
	case "err":
		return log.ErrorLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("parsing log level %q: %w", s, err)
	}
	return lvl, nil
}

// ApplyLevel overrides the level chosen by Setup with a level name such as
// "warn". An empty name leaves the level unchanged.
func ApplyLevel(name string) error {
	if name == "" {
		return nil
	}
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// Tag returns the upper-case tag written into console lines, e.g. "INFO".
func Tag(level log.Level) string {
	return strings.ToUpper(level.String())
}
