package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Initialize installs the default logger. Logs go to stderr so stdout only
// carries the deployment lines operators capture.
func Initialize(level, format string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}

	logger, err := New(os.Stderr, parsed, format)
	if err != nil {
		return err
	}

	slog.SetDefault(logger)
	return nil
}

// New builds a logger writing to w in the console or json format.
func New(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	case FormatConsole, "":
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if s, ok := a.Value.Any().(string); ok && s == "" {
					return slog.Attr{}
				}
				return a
			},
		})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s or %s)", format, FormatConsole, FormatJSON)
	}
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var parsed slog.Level
	if level == "" {
		return slog.LevelInfo, nil
	}
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return parsed, nil
}

// Named returns the default logger tagged with a component name.
func Named(name string) *slog.Logger {
	logger := slog.Default()
	if logger == nil {
		return nil
	}

	return logger.With("name", name)
}
