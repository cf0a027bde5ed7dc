// ABOUTME: Structured logger construction on top of charmbracelet/log.
// ABOUTME: Parses level and format names and derives per-component child loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures the root logger.
type Options struct {
	// Level is debug, info, warn or error. Unknown values mean info.
	Level string
	// Format is text, json or logfmt. Unknown values mean text.
	Format string
	// Writer defaults to stderr.
	Writer io.Writer
}

// New builds the root logger.
func New(opts Options) *log.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		Level:           parseLevel(opts.Level),
		Formatter:       parseFormat(opts.Format),
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}

// Named returns a child logger tagged with a component name.
func Named(l *log.Logger, component string) *log.Logger {
	return l.With("component", component)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func parseFormat(s string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
