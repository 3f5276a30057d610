package logctx

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// staticSource is a ContextSource with fixed group contents.
type staticSource map[string]Map

func (s staticSource) GetContext(group string) Map {
	return s[group].Clone()
}

func seededManager(t *testing.T) *Manager {
	t.Helper()

	repo := NewRepository()
	repo.Set("P", Map{"k": "v"})

	mgr := NewManager(repo, NewCatalog())
	mgr.AddProvider("P", GroupLog)

	return mgr
}

func TestProcessor_MergesContextIntoRecordAndMap(t *testing.T) {
	p := NewProcessor(seededManager(t))

	record := Record{
		Time:    time.Now(),
		Level:   slog.LevelInfo,
		Message: "hello",
		Extra:   Map{"existing": true},
	}

	processed := p.ProcessRecord(record)
	assert.Equal(t, Map{"existing": true, "k": "v"}, processed.Extra)
	assert.Equal(t, Map{"existing": true}, record.Extra, "input record must not be mutated")

	plain := p.ProcessMap(map[string]any{"message": "hello"})
	assert.Equal(t, map[string]any{"k": "v"}, plain["extra"])
	assert.Equal(t, "hello", plain["message"])
}

func TestProcessor_ContextWinsOnConflict(t *testing.T) {
	p := NewProcessor(staticSource{GroupLog: {"k": "context"}})

	processed := p.ProcessRecord(Record{Extra: Map{"k": "record", "other": 1}})
	assert.Equal(t, Map{"k": "context", "other": 1}, processed.Extra)

	plain := p.ProcessMap(map[string]any{"extra": map[string]any{"k": "record"}})
	assert.Equal(t, map[string]any{"k": "context"}, plain["extra"])
}

func TestProcessor_EmptyContextReturnsInput(t *testing.T) {
	p := NewProcessor(staticSource{})

	record := &Record{Message: "unchanged"}
	assert.Same(t, record, p.Process(record))

	plain := map[string]any{"message": "unchanged"}
	out := p.Process(plain).(map[string]any)
	assert.Equal(t, plain, out)
	_, hasExtra := out["extra"]
	assert.False(t, hasExtra)
}

func TestProcessor_ProcessDispatchesOnShape(t *testing.T) {
	p := NewProcessor(staticSource{GroupLog: {"k": "v"}})

	tests := []struct {
		name   string
		input  any
		assert func(t *testing.T, out any)
	}{
		{
			name:  "record value",
			input: Record{Message: "m"},
			assert: func(t *testing.T, out any) {
				assert.Equal(t, Map{"k": "v"}, out.(Record).Extra)
			},
		},
		{
			name:  "record pointer",
			input: &Record{Message: "m"},
			assert: func(t *testing.T, out any) {
				assert.Equal(t, Map{"k": "v"}, out.(*Record).Extra)
			},
		},
		{
			name:  "nil record pointer",
			input: (*Record)(nil),
			assert: func(t *testing.T, out any) {
				assert.Nil(t, out.(*Record))
			},
		},
		{
			name:  "plain map",
			input: map[string]any{"message": "m"},
			assert: func(t *testing.T, out any) {
				assert.Equal(t, map[string]any{"k": "v"}, out.(map[string]any)["extra"])
			},
		},
		{
			name:  "context map",
			input: Map{"message": "m", "extra": Map{"x": 1}},
			assert: func(t *testing.T, out any) {
				assert.Equal(t, map[string]any{"k": "v", "x": 1}, out.(Map)["extra"])
			},
		},
		{
			name:  "unrecognized shape",
			input: "just a string",
			assert: func(t *testing.T, out any) {
				assert.Equal(t, "just a string", out)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				tt.assert(t, p.Process(tt.input))
			})
		})
	}
}

func TestProcessor_NilSource(t *testing.T) {
	p := NewProcessor(nil)

	record := Record{Message: "m"}
	assert.Equal(t, record, p.ProcessRecord(record))
}

func TestMap_Clone(t *testing.T) {
	var nilMap Map
	clone := nilMap.Clone()
	assert.NotNil(t, clone)
	assert.Empty(t, clone)

	original := Map{"a": 1}
	copied := original.Clone()
	copied["a"] = 2
	assert.Equal(t, 1, original["a"])
}
