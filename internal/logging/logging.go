// Package logging builds the structured logger shared by the CLI and the
// reconcilers. Attributes whose key looks sensitive are masked before they
// reach the handler.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pankaj-dahiya-devops/credprov/internal/obfuscate"
)

// ParseLevel maps a config/flag level name to a slog.Level.
// Unknown names fall back to info.
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

// New creates a logger writing to w. format is "json" or "text" (default).
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: maskSensitive,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func maskSensitive(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if obfuscate.ShouldObfuscate(a.Key) {
		return slog.String(a.Key, obfuscate.Value(a.Value.String(), false))
	}
	return a
}
