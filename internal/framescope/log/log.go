// Package log bootstraps the process-wide slog default used by the CLI
// commands and provides a panic recovery helper for top-level goroutines.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Setup installs the default slog logger once. When logFile is non-empty the
// log is appended there; otherwise it goes to stderr. Failing to open the
// file falls back to stderr rather than erroring.
func Setup(logFile string, verbose bool) {
	initOnce.Do(func() {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		out := io.Writer(os.Stderr)
		if logFile != "" {
			if f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
				out = f
			}
		}

		logger := slog.NewTextHandler(out, &slog.HandlerOptions{
			Level:     level,
			AddSource: verbose,
		})

		slog.SetDefault(slog.New(logger))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// RecoverPanic logs a recovered panic with its stack and runs cleanup.
// Intended for use as a deferred call at goroutine entry points.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
