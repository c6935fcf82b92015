// Package logging builds charmbracelet/log loggers for the long-running
// subcommands. The one-shot analyze path logs through the slog bootstrap in
// internal/framescope/log instead; this package is for followers that keep
// emitting structured records over time.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger carries a configured logger plus the writer to release on shutdown.
type Logger struct {
	*log.Logger
	closer io.Closer
}

// Close releases the underlying writer when it owns one.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// New returns a logger for the named subcommand. The level comes from
// FRAMESCOPE_LOG_LEVEL (debug, info, warn, error; default info) and output
// goes to stderr, or to a timestamped file when FRAMESCOPE_LOG_TO_FILE=1 so
// a follower's records survive detaching the terminal.
func New(subcommand string) *Logger {
	w := io.Writer(os.Stderr)
	var closer io.Closer

	if os.Getenv("FRAMESCOPE_LOG_TO_FILE") == "1" {
		name := fmt.Sprintf("framescope-%s-%s.log", subcommand, time.Now().Format("20060102-150405"))
		if f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
			w = f
			closer = f
		}
		// On open failure the logger stays on stderr.
	}

	prefix := os.Getenv("FRAMESCOPE_LOG_PREFIX")
	if prefix == "" {
		prefix = "framescope " + subcommand
	}
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          prefix,
	})
	lg.SetLevel(levelFromEnv())

	return &Logger{Logger: lg, closer: closer}
}

func levelFromEnv() log.Level {
	raw := os.Getenv("FRAMESCOPE_LOG_LEVEL")
	if raw == "" {
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(raw)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// IsDebug reports whether debug-level records will be emitted.
func IsDebug() bool {
	return levelFromEnv() <= log.DebugLevel
}
