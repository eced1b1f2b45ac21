package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoggerOptions controls NewLoggerWith. Zero values take the environment defaults.
type LoggerOptions struct {
	Output  io.Writer
	Level   string
	Service string
}

// NewLogger returns the server logger: JSON at info in production, text with source
// locations at debug otherwise.
func NewLogger(env string) *slog.Logger {
	return NewLoggerWith(env, LoggerOptions{})
}

func NewLoggerWith(env string, o LoggerOptions) *slog.Logger {
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.Service == "" {
		o.Service = "veerdrishti"
	}

	opts := &slog.HandlerOptions{
		AddSource: env == "development",
		Level:     ParseLevel(o.Level, env),
	}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(o.Output, opts)
	} else {
		handler = slog.NewTextHandler(o.Output, opts)
	}

	return slog.New(handler).With(slog.String("service", o.Service))
}

// ParseLevel reads a LOG_LEVEL value. Empty or unrecognized input yields info in
// production and debug elsewhere.
func ParseLevel(level, env string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
