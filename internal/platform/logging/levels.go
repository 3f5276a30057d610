package logging

import (
	"context"
	"log/slog"
	"strings"
)

// Levels beyond the four slog defines, spaced so the eight syslog severities
// keep their relative order.
const (
	LevelTrace     = slog.Level(-8)
	LevelNotice    = slog.Level(2)
	LevelCritical  = slog.Level(12)
	LevelAlert     = slog.Level(16)
	LevelEmergency = slog.Level(20)
)

var levelNames = map[slog.Level]string{
	LevelTrace:      "TRACE",
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	LevelNotice:     "NOTICE",
	slog.LevelWarn:  "WARNING",
	slog.LevelError: "ERROR",
	LevelCritical:   "CRITICAL",
	LevelAlert:      "ALERT",
	LevelEmergency:  "EMERGENCY",
}

// LevelName returns the severity name of level. Levels between the named ones
// fall back to slog's "BASE+N" notation.
func LevelName(level slog.Level) string {
	if name, ok := levelNames[level]; ok {
		return name
	}

	return level.String()
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "notice":
		return LevelNotice
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	case "alert":
		return LevelAlert
	case "emergency":
		return LevelEmergency
	default:
		return slog.LevelInfo
	}
}

// ParseLevel is the exported form of parseLevel, used by configuration validation.
func ParseLevel(level string) slog.Level {
	return parseLevel(level)
}

// replaceLevelName renders the custom levels by name instead of "DEBUG-4" style offsets.
func replaceLevelName(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}

	if level, ok := a.Value.Any().(slog.Level); ok {
		a.Value = slog.StringValue(LevelName(level))
	}

	return a
}

// Log writes msg at level through the logger stored in ctx.
func Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	FromContext(ctx).Log(ctx, level, msg, args...)
}
