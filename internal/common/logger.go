package common

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the run's JSON logger. Records are appended to cfg.File (never
// truncated) and, when cfg.Console is set, also written to stderr. The returned close
// function releases the log file.
func NewLogger(cfg LogConfig) (*slog.Logger, func() error, error) {
	var writers []io.Writer
	closeFn := func() error { return nil }

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, ConfigError("open log file", err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}
	if cfg.Console || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}))
	return logger, closeFn, nil
}

// ParseLevel maps debug/info/warn/error to slog levels; anything else is info.
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
