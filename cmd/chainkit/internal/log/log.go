// Package log configures structured logging for chainkit using log/slog.
package log

import (
	"io"
	"log/slog"
)

// Setup builds a text logger writing to w and installs it as the slog
// default. The level follows the verbosity flags:
//
//   - quiet mode:   only WARN and ERROR messages
//   - normal mode:  INFO and above
//   - verbose mode: DEBUG and above
//
// Quiet wins when both flags are set.
func Setup(w io.Writer, verbose, quiet bool) *slog.Logger {
	var level slog.Level
	switch {
	case quiet:
		level = slog.LevelWarn
	case verbose:
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
