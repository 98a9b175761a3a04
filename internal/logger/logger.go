// Package logger builds the process-wide slog logger.
//
// Attributes whose key names a secret are replaced with a fixed marker
// before they reach the handler, so a stray slog.String("password", ...)
// never ends up in the output.
package logger

import (
	"io"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

var secretKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"token":         {},
	"secret":        {},
}

// New returns a logger writing to w. format is "json" or "text"; anything
// else falls back to json.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: redact,
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}
