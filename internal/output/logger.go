/*
PURPOSE:
  Provides a structured logger for chatprobe.
  Wraps slog for consistent output.

REQUIREMENTS:
  User-specified:
  - Show every received stream frame when asked to (verbose).
  - Keep the report readable: logs go to stderr, the report to stdout.

  Implementation-discovered:
  - Needs Debug/Info/Warn/Error levels.
  - JSON handler for non-interactive use.

ARCHITECTURE INTEGRATION:
  - Used everywhere.

IMPLEMENTATION RULES:
  - Use `log/slog`.

USAGE:
  output.Logger.Info("message", "key", "value")
*/

package output

import (
	"io"
	"log/slog"
	"os"
)

var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// SetLogger allows overriding the default logger (e.g. for testing or config changes)
func SetLogger(l *slog.Logger) {
	Logger = l
}

// Setup replaces the default logger according to CLI flags.
func Setup(w io.Writer, verbose, jsonFormat bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	var h slog.Handler
	if jsonFormat {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	SetLogger(slog.New(h))
}
