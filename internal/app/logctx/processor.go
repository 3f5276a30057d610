package logctx

import (
	"log/slog"
	"maps"
	"time"
)

// ExtraKey is the field that receives injected context in processed records.
const ExtraKey = "extra"

// ContextSource answers merged context for a group. *Manager implements it.
type ContextSource interface {
	GetContext(group string) Map
}

// FreshSource is a ContextSource that can recompute dynamic providers for
// a single event. *Manager implements it.
type FreshSource interface {
	ContextSource
	FreshContext(group string) (Map, error)
}

// Option configures a Processor, and through it a Handler or ZerologHook.
type Option func(*Processor)

// WithRefresh recomputes dynamic providers for every record when the source
// is a FreshSource. Without it records carry the dynamic context of the last
// explicit UpdateDynamicContext.
func WithRefresh() Option {
	return func(p *Processor) { p.refresh = true }
}

// Record is the structured log record shape understood by Processor.
type Record struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Context Map
	Extra   Map
}

// WithExtra returns a copy of r whose Extra is the union of r.Extra and extra,
// extra winning on conflicting keys.
func (r Record) WithExtra(extra Map) Record {
	merged := r.Extra.Clone()
	maps.Copy(merged, extra)
	r.Extra = merged

	return r
}

// Processor merges the "log" group into outgoing log records.
type Processor struct {
	source  ContextSource
	group   string
	refresh bool
}

// NewProcessor creates a processor reading the "log" group from source.
func NewProcessor(source ContextSource, opts ...Option) *Processor {
	p := &Processor{source: source, group: GroupLog}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Process enriches a record of any supported shape:
//   - Record and *Record get context merged into Extra
//   - map[string]any and Map get context merged into the "extra" key
//
// Any other value is returned unchanged. When the group has no context the
// input itself is returned.
func (p *Processor) Process(record any) any {
	extra := p.context()
	if len(extra) == 0 {
		return record
	}

	switch r := record.(type) {
	case Record:
		return r.WithExtra(extra)
	case *Record:
		if r == nil {
			return r
		}
		out := r.WithExtra(extra)
		return &out
	case map[string]any:
		return mergeExtra(r, extra)
	case Map:
		return Map(mergeExtra(r, extra))
	default:
		return record
	}
}

// ProcessRecord returns r with the group's context merged into Extra.
func (p *Processor) ProcessRecord(r Record) Record {
	extra := p.context()
	if len(extra) == 0 {
		return r
	}

	return r.WithExtra(extra)
}

// ProcessMap returns a copy of record with the group's context merged into
// record["extra"]. An existing "extra" value that is not a map is replaced.
func (p *Processor) ProcessMap(record map[string]any) map[string]any {
	extra := p.context()
	if len(extra) == 0 {
		return record
	}

	return mergeExtra(record, extra)
}

func mergeExtra(record map[string]any, extra Map) map[string]any {
	merged := make(map[string]any, len(extra))
	switch existing := record[ExtraKey].(type) {
	case map[string]any:
		maps.Copy(merged, existing)
	case Map:
		maps.Copy(merged, existing)
	}
	maps.Copy(merged, extra)

	out := make(map[string]any, len(record)+1)
	maps.Copy(out, record)
	out[ExtraKey] = merged

	return out
}

func (p *Processor) context() Map {
	if p == nil || p.source == nil {
		return nil
	}

	if fresh, ok := p.source.(FreshSource); ok && p.refresh {
		// Provider failures leave the previous value; a log record has
		// nowhere to report them.
		extra, _ := fresh.FreshContext(p.group)
		return extra
	}

	return p.source.GetContext(p.group)
}
