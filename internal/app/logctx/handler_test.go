package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_InjectsExtraGroup(t *testing.T) {
	var buf bytes.Buffer
	source := staticSource{GroupLog: {"pid": 42, "hostname": "box", "nested": Map{"a": "b"}}}
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), source))

	logger.Info("hello", slog.String("user", "jane"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "jane", entry["user"])

	extra, ok := entry["extra"].(map[string]any)
	require.True(t, ok, "extra group should be present")
	assert.Equal(t, float64(42), extra["pid"])
	assert.Equal(t, "box", extra["hostname"])
	assert.Equal(t, map[string]any{"a": "b"}, extra["nested"])
}

func TestHandler_EmptyContextLeavesRecordAlone(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), staticSource{}))

	logger.Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "extra")
}

func TestHandler_ReadsCurrentContextPerRecord(t *testing.T) {
	var buf bytes.Buffer
	counter := &countingProvider{key: "n"}

	catalog := NewCatalog()
	require.NoError(t, catalog.RegisterDynamic("counter", counter))
	mgr := NewManager(NewRepository(), catalog)
	mgr.AddProvider("counter", GroupLog)
	require.NoError(t, mgr.BootProviders())

	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), mgr))

	require.NoError(t, mgr.UpdateDynamicContext())
	logger.Info("first")
	require.NoError(t, mgr.UpdateDynamicContext())
	logger.Info("second")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var second map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, float64(2), second["extra"].(map[string]any)["n"])
}

func TestHandler_MergesCallerExtra(t *testing.T) {
	tests := []struct {
		name   string
		source staticSource
		log    func(*slog.Logger)
		want   map[string]any
	}{
		{
			name:   "record group, context wins",
			source: staticSource{GroupLog: {"k": "ctx"}},
			log: func(l *slog.Logger) {
				l.Info("m", slog.Group("extra", "k", "caller", "own", "x"))
			},
			want: map[string]any{"k": "ctx", "own": "x"},
		},
		{
			name:   "bound group",
			source: staticSource{GroupLog: {"pid": 1}},
			log: func(l *slog.Logger) {
				l.With(slog.Group("extra", "tenant", "acme")).Info("m")
			},
			want: map[string]any{"pid": float64(1), "tenant": "acme"},
		},
		{
			name:   "bound and record groups",
			source: staticSource{GroupLog: {"pid": 1}},
			log: func(l *slog.Logger) {
				l.With(slog.Group("extra", "tenant", "acme", "job", "a")).Info("m", slog.Group("extra", "job", "b"))
			},
			want: map[string]any{"pid": float64(1), "tenant": "acme", "job": "b"},
		},
		{
			name:   "bound group without context",
			source: staticSource{},
			log: func(l *slog.Logger) {
				l.With(slog.Group("extra", "tenant", "acme")).Info("m")
			},
			want: map[string]any{"tenant": "acme"},
		},
		{
			name:   "scalar extra is replaced",
			source: staticSource{GroupLog: {"pid": 1}},
			log: func(l *slog.Logger) {
				l.Info("m", slog.String("extra", "text"))
			},
			want: map[string]any{"pid": float64(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), tt.source)))

			assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"extra":`)), buf.String())

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "m", entry["msg"])
			assert.Equal(t, tt.want, entry["extra"])
		})
	}
}

func TestHandler_BoundExtraStaysOutsideLaterGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), staticSource{GroupLog: {"pid": 1}}))

	logger.With(slog.Group("extra", "tenant", "acme")).WithGroup("req").Info("m", slog.String("id", "7"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, map[string]any{"tenant": "acme"}, entry["extra"])
	assert.Equal(t, map[string]any{"id": "7", "extra": map[string]any{"pid": float64(1)}}, entry["req"])
}

func TestHandler_WithRefreshRecomputesPerRecord(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want []any
	}{
		{name: "refresh", opts: []Option{WithRefresh()}, want: []any{float64(1), float64(2)}},
		{name: "no refresh", want: []any{nil, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			catalog := NewCatalog()
			require.NoError(t, catalog.RegisterDynamic("counter", &countingProvider{key: "n"}))
			mgr := NewManager(NewRepository(), catalog)
			mgr.AddProvider("counter", GroupLog)
			require.NoError(t, mgr.BootProviders())

			logger := slog.New(NewHandler(slog.NewJSONHandler(&buf, nil), mgr, tt.opts...))
			logger.Info("first")
			logger.Info("second")

			lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
			require.Len(t, lines, 2)

			for i, line := range lines {
				var entry map[string]any
				require.NoError(t, json.Unmarshal(line, &entry))

				if tt.want[i] == nil {
					assert.NotContains(t, entry, "extra")
					continue
				}
				assert.Equal(t, map[string]any{"n": tt.want[i]}, entry["extra"])
			}
		})
	}
}

func TestZerologHook_WithRefresh(t *testing.T) {
	var buf bytes.Buffer

	catalog := NewCatalog()
	require.NoError(t, catalog.RegisterDynamic("counter", &countingProvider{key: "n"}))
	mgr := NewManager(NewRepository(), catalog)
	mgr.AddProvider("counter", GroupLog)
	require.NoError(t, mgr.BootProviders())

	logger := zerolog.New(&buf).Hook(NewZerologHook(mgr, WithRefresh()))
	logger.Info().Msg("first")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, map[string]any{"n": float64(1)}, entry["extra"])
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	base := NewHandler(slog.NewJSONHandler(&buf, nil), staticSource{GroupLog: {"k": "v"}})

	logger := slog.New(base.WithAttrs([]slog.Attr{slog.String("service", "svc")}))
	logger.Info("with attrs")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "svc", entry["service"])
	assert.Equal(t, map[string]any{"k": "v"}, entry["extra"])

	buf.Reset()
	slog.New(base.WithGroup("req")).Info("grouped", slog.String("id", "1"))

	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	group, ok := entry["req"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"k": "v"}, group["extra"])
}

func TestHandler_Enabled(t *testing.T) {
	h := NewHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}), staticSource{})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestAttrs_SortedByKey(t *testing.T) {
	attrs := Attrs(Map{"b": 2, "a": 1, "c": map[string]any{"z": true}})

	require.Len(t, attrs, 3)
	assert.Equal(t, "a", attrs[0].Key)
	assert.Equal(t, "b", attrs[1].Key)
	assert.Equal(t, "c", attrs[2].Key)
	assert.Equal(t, slog.KindGroup, attrs[2].Value.Kind())
}

func TestZerologHook_InjectsExtraDict(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(NewZerologHook(staticSource{GroupLog: {"pid": 7}}))

	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, map[string]any{"pid": float64(7)}, entry["extra"])
}

func TestZerologHook_EmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(NewZerologHook(staticSource{}))

	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "extra")
}
