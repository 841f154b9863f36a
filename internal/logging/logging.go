// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps "debug", "info", "warn" or "error" (any case) to a level.
// ok is false for anything else, which callers treat as info.
func ParseLevel(level string) (lvl slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New returns a text logger writing to w at the given level, tagged with the
// process name.
func New(w io.Writer, level, process string) *slog.Logger {
	lvl, _ := ParseLevel(level)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	if process != "" {
		logger = logger.With("process", process)
	}
	return logger
}

// Setup creates the stderr logger for process, installs it as the default and
// returns it. An unrecognized level is reported once and replaced by info.
func Setup(level, process string) *slog.Logger {
	logger := New(os.Stderr, level, process)
	slog.SetDefault(logger)
	if _, ok := ParseLevel(level); !ok {
		logger.Warn("unknown log level, using info", "level", level)
	}
	return logger
}
