package config

import (
	"io"
	"log/slog"
	"strings"
)

// Level maps the configured level name to a slog level. Unknown names
// mean info.
func (c LogConfig) Level() slog.Level {
	switch strings.ToLower(c.LevelName) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Handler builds the slog handler writing to w.
func (c LogConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.Format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
