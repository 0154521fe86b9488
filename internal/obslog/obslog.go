// Package obslog wires the engine/harness's default slog.Logger, the
// same Config{Level,JSON} -> slog.New*Handler -> slog.SetDefault shape
// the teacher uses for its simulator-wide logging.
package obslog

import (
	"log/slog"
	"os"
)

// Config selects the log level and output encoding.
type Config struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
	JSON  bool   `json:"json" yaml:"json"`   // true for container/production, false for local dev
}

// Setup installs the process-wide default logger per cfg.
func Setup(cfg Config) {
	var level slog.Level
	switch cfg.Level {
	case "debug", "trace":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
