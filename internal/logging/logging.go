// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelCritical sits above slog.LevelError for CRITICAL/FATAL.
const LevelCritical = slog.Level(12)

const EnvLevel = "LOG_LEVEL_NAME"

// ParseLevel maps LOG_LEVEL_NAME values onto slog levels. Empty means INFO.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "":
		return slog.LevelInfo, nil
	case "CRITICAL", "FATAL":
		return LevelCritical, nil
	case "ERROR":
		return slog.LevelError, nil
	case "WARNING", "WARN":
		return slog.LevelWarn, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Setup installs a text handler as the default logger, at the level named by
// LOG_LEVEL_NAME as seen through lookupEnv. When path is set the log is
// appended to that file and the returned closer must be called.
func Setup(path string, stderr io.Writer, lookupEnv func(string) (string, bool)) (io.Closer, error) {
	name, _ := lookupEnv(EnvLevel)
	level, err := ParseLevel(name)
	if err != nil {
		return nil, err
	}

	var w io.Writer = stderr
	var closer io.Closer = io.NopCloser(nil)
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	slog.SetDefault(New(w, level))
	return closer, nil
}

// New builds a logger that prints CRITICAL for LevelCritical.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	}))
}
