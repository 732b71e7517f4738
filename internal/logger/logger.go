// Package logger builds the slog logger used across petreld from the
// logging section of the configuration. The level is held in a shared
// slog.LevelVar so a config reload can adjust verbosity without rebuilding
// the handler chain.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler, level and destination for the process logger.
type Config struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
	Output string `mapstructure:"output" yaml:"output"` // stdout, stderr, or a file path
}

var level slog.LevelVar

// Init constructs a logger from cfg. The returned logger is handed to the
// server and CLI; Init does not touch slog's process-wide default.
func Init(cfg Config) (*slog.Logger, error) {
	parsed, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level.Set(parsed)

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: &level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(handler), nil
}

// SetLevel adjusts the level of every logger built by Init. Used by the
// config watcher, which may not change anything else at runtime.
func SetLevel(s string) error {
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level.Set(parsed)
	return nil
}

// ParseLevel maps a config string to a slog level. The empty string means
// info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func openOutput(name string) (io.Writer, error) {
	switch strings.ToLower(name) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log output: %w", err)
		}
		return f, nil
	}
}
