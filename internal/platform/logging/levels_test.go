package logging

import (
	"log/slog"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

// severities lists every named level with the config spelling that selects it.
var severities = []struct {
	config string
	level  slog.Level
	name   string
}{
	{"trace", LevelTrace, "TRACE"},
	{"debug", slog.LevelDebug, "DEBUG"},
	{"info", slog.LevelInfo, "INFO"},
	{"notice", LevelNotice, "NOTICE"},
	{"warning", slog.LevelWarn, "WARNING"},
	{"error", slog.LevelError, "ERROR"},
	{"critical", LevelCritical, "CRITICAL"},
	{"alert", LevelAlert, "ALERT"},
	{"emergency", LevelEmergency, "EMERGENCY"},
}

func TestSeverities(t *testing.T) {
	for i, s := range severities {
		t.Run(s.config, func(t *testing.T) {
			assert.Equal(t, s.level, ParseLevel(s.config))
			assert.Equal(t, s.name, LevelName(s.level))

			if i > 0 {
				assert.Greater(t, s.level, severities[i-1].level, "severities must stay ordered")
			}
		})
	}
}

func TestParseLevel_Fallbacks(t *testing.T) {
	tests := map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"DEBUG":   slog.LevelDebug,
		"Error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), "input %q", input)
	}
}

func TestLevelName_Unnamed(t *testing.T) {
	assert.Equal(t, "INFO+1", LevelName(slog.Level(1)))
}

func TestSlogToCharmLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  log.Level
	}{
		{slog.Level(-12), log.DebugLevel},
		{LevelTrace, log.DebugLevel},
		{slog.LevelDebug, log.DebugLevel},
		{slog.LevelInfo, log.InfoLevel},
		{LevelNotice, log.InfoLevel},
		{slog.LevelWarn, log.WarnLevel},
		{slog.LevelError, log.ErrorLevel},
		{LevelEmergency, log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(LevelName(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, slogToCharmLevel(tt.level))
		})
	}
}

func TestReplaceLevelName(t *testing.T) {
	level := slog.Any(slog.LevelKey, LevelAlert)

	assert.Equal(t, "ALERT", replaceLevelName(nil, level).Value.String())
	assert.Equal(t, LevelAlert, replaceLevelName([]string{"extra"}, level).Value.Any(), "grouped attrs are untouched")

	other := slog.String("channel", "mail")
	assert.Equal(t, other, replaceLevelName(nil, other))
}
