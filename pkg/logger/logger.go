// Package logger wires log/slog to stdout and a daily rotating log file.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options controls how Setup builds the logger.
type Options struct {
	Dir         string // directory for rotating log files
	FilePattern string // e.g. "wa-fleet-%s.log"
	Level       string // debug, info, warn, error
	Format      string // text or json
}

var (
	activeRotatingWriter *DailyRotatingWriter
	activeWriter         io.Writer = os.Stdout
)

// Setup configures the application logger and installs it as slog's default.
func Setup(opts Options) (*slog.Logger, error) {
	if opts.FilePattern == "" {
		opts.FilePattern = "wa-fleet-%s.log"
	}

	fileWriter, err := NewDailyRotatingWriter(opts.Dir, opts.FilePattern)
	if err != nil {
		return nil, fmt.Errorf("creating log writer: %w", err)
	}
	activeRotatingWriter = fileWriter
	activeWriter = io.MultiWriter(os.Stdout, fileWriter)

	logger := slog.New(newHandler(activeWriter, opts))
	slog.SetDefault(logger)

	logger.Info("logging initialized", "path", fileWriter.CurrentPath())
	return logger, nil
}

// Fallback returns a stdout-only logger for when file logging cannot be set up.
func Fallback(opts Options) *slog.Logger {
	activeWriter = os.Stdout
	logger := slog.New(newHandler(os.Stdout, opts))
	slog.SetDefault(logger)
	return logger
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "json") {
		return slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.NewTextHandler(w, handlerOpts)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Writer returns the writer the logger writes to, so other components
// (gin's access log) can share it.
func Writer() io.Writer {
	return activeWriter
}

// Close closes the rotating log file, if any.
func Close() error {
	if activeRotatingWriter != nil {
		return activeRotatingWriter.Close()
	}
	return nil
}
