// SPDX-License-Identifier: MPL-2.0

// Package logging builds the application logger and defines the small
// leveled sink interface the core packages log through.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Levels understood by Sink. They alias the charmbracelet/log levels so a
// *log.Logger satisfies Sink without an adapter.
const (
	DebugLevel = log.DebugLevel
	InfoLevel  = log.InfoLevel
	WarnLevel  = log.WarnLevel
	ErrorLevel = log.ErrorLevel
)

type (
	// Level is a logging severity.
	Level = log.Level

	// Sink receives leveled log records with optional key/value pairs.
	Sink interface {
		Log(level Level, msg any, keyvals ...any)
	}

	// Options configures New.
	Options struct {
		// Level is the minimum level written ("debug", "info", "warn", "error").
		Level string
		// File, when set, receives log output instead of Writer. Parent
		// directories are created as needed.
		File string
		// Writer is used when File is empty. Defaults to os.Stderr.
		Writer io.Writer
		// Prefix is printed before every record.
		Prefix string
	}
)

// New creates a logger from opts. The returned close function releases the
// log file, if one was opened, and is always non-nil.
func New(opts Options) (*log.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, noopClose, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	closeFn := noopClose

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, noopClose, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, noopClose, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.File != "",
		TimeFormat:      time.DateTime,
	})

	return logger, closeFn, nil
}

// ParseLevel parses a level name. An empty name selects InfoLevel.
func ParseLevel(s string) (Level, error) {
	if strings.TrimSpace(s) == "" {
		return InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Discard returns a sink that drops every record.
func Discard() Sink {
	return log.New(io.Discard)
}

func noopClose() error { return nil }
