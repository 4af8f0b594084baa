// Package logging provides the process-wide structured logger used by the bot.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel represents logging levels
type LogLevel string

const (
	// LogLevelDebug includes cache hits/misses and every dispatched command
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is for connection and lifecycle events
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is for tracker failures reported back to chat users
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is for conditions that stop the bot
	LogLevelError LogLevel = "error"
)

var levels = map[LogLevel]slog.Level{
	LogLevelDebug: slog.LevelDebug,
	LogLevelInfo:  slog.LevelInfo,
	LogLevelWarn:  slog.LevelWarn,
	LogLevelError: slog.LevelError,
}

// ParseLevel maps a case-insensitive level name to a LogLevel.
// Unknown names fall back to info.
func ParseLevel(name string) LogLevel {
	level := LogLevel(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := levels[level]; !ok {
		return LogLevelInfo
	}
	return level
}

// Config holds logging configuration. The zero value logs text at info
// level to stderr.
type Config struct {
	Level      LogLevel
	Output     io.Writer
	JSONFormat bool
}

var current atomic.Pointer[slog.Logger]

func build(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: levels[ParseLevel(string(cfg.Level))]}
	if cfg.JSONFormat {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// Initialize replaces the process logger. A nil cfg restores the defaults.
// Loggers already handed out by WithComponent keep their old handler.
func Initialize(cfg *Config) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	logger := build(c)
	current.Store(logger)
	slog.SetDefault(logger)
}

// GetLogger returns the process logger, creating a default one on first use.
func GetLogger() *slog.Logger {
	if logger := current.Load(); logger != nil {
		return logger
	}
	current.CompareAndSwap(nil, build(Config{}))
	return current.Load()
}

// Debug logs a message at debug level
func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

// Info logs a message at info level
func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

// Warn logs a message at warn level
func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

// Error logs a message at error level
func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// WithComponent returns a logger whose records carry component=name.
func WithComponent(name string) *slog.Logger {
	return GetLogger().With("component", name)
}
