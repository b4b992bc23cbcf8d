// Package logging wraps log/slog with a subsystem keyval so every line
// can be attributed to the component that emitted it.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Subsystem tags a log line with the component that emitted it.
type Subsystem string

const (
	Config  Subsystem = "config"
	Data    Subsystem = "data"
	Session Subsystem = "session"
	Device  Subsystem = "device"
)

// Setup installs the default logger. Format is "text" or "json";
// level is one of debug, info, warn, error (case-insensitive).
func Setup(w io.Writer, format, level string) {
	if w == nil {
		w = os.Stderr
	}
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lv}
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func Debug(msg string, sub Subsystem, keyvals ...any) {
	slog.Debug(msg, append([]any{"subsystem", sub}, keyvals...)...)
}

func Info(msg string, sub Subsystem, keyvals ...any) {
	slog.Info(msg, append([]any{"subsystem", sub}, keyvals...)...)
}

func Warn(msg string, sub Subsystem, keyvals ...any) {
	slog.Warn(msg, append([]any{"subsystem", sub}, keyvals...)...)
}

func Error(msg string, sub Subsystem, keyvals ...any) {
	slog.Error(msg, append([]any{"subsystem", sub}, keyvals...)...)
}
