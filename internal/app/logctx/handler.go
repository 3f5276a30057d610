package logctx

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// Handler is an slog.Handler that merges the "log" group context into the
// "extra" attribute group of every record before passing it to the next
// handler. An "extra" group supplied by the caller, on the record or through
// WithAttrs, is folded into the same group with context winning on
// conflicting keys. When the handler has been narrowed with WithGroup,
// "extra" lands inside that group.
type Handler struct {
	next      slog.Handler
	processor *Processor

	// bound holds "extra" groups passed to WithAttrs since the last
	// WithGroup. They are merged per record instead of being pre-formatted.
	bound []slog.Attr
}

// NewHandler wraps next so records carry the context held by source.
func NewHandler(next slog.Handler, source ContextSource, opts ...Option) *Handler {
	return &Handler{next: next, processor: NewProcessor(source, opts...)}
}

// Enabled reports whether the wrapped handler handles records at the given level.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle injects context and forwards the record.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	extra := h.processor.context()
	if len(extra) == 0 && len(h.bound) == 0 {
		return h.next.Handle(ctx, r)
	}

	existing := slices.Clone(h.bound)
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		a.Value = a.Value.Resolve()
		if a.Key == ExtraKey {
			existing = append(existing, a)
			return true
		}

		out.AddAttrs(a)

		return true
	})

	if merged := mergeExtraAttrs(existing, extra); len(merged) > 0 {
		out.AddAttrs(slog.Attr{Key: ExtraKey, Value: slog.GroupValue(merged...)})
	}

	return h.next.Handle(ctx, out)
}

// WithAttrs returns a new Handler whose wrapped handler has the given
// attributes. "extra" groups are held back and merged per record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var rest []slog.Attr

	bound := slices.Clone(h.bound)
	for _, a := range attrs {
		a.Value = a.Value.Resolve()
		if a.Key == ExtraKey && a.Value.Kind() == slog.KindGroup {
			bound = append(bound, a)
			continue
		}
		rest = append(rest, a)
	}

	next := h.next
	if len(rest) > 0 {
		next = next.WithAttrs(rest)
	}

	return &Handler{next: next, processor: h.processor, bound: bound}
}

// WithGroup returns a new Handler whose wrapped handler has the given group.
// Held-back "extra" groups stay at the level they were bound at.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	next := h.next
	if len(h.bound) > 0 {
		next = next.WithAttrs([]slog.Attr{{Key: ExtraKey, Value: slog.GroupValue(mergeExtraAttrs(h.bound, nil)...)}})
	}

	return &Handler{next: next.WithGroup(name), processor: h.processor}
}

// mergeExtraAttrs folds the members of the existing "extra" attributes and
// then fields into one list. Later values win, fields last; keys keep the
// position of their first appearance. A non-group "extra" has no members and
// is dropped.
func mergeExtraAttrs(existing []slog.Attr, fields Map) []slog.Attr {
	var (
		keys   []string
		values = make(map[string]slog.Attr)
	)

	put := func(a slog.Attr) {
		if _, ok := values[a.Key]; !ok {
			keys = append(keys, a.Key)
		}
		values[a.Key] = a
	}

	for _, group := range existing {
		if group.Value.Kind() != slog.KindGroup {
			continue
		}
		for _, a := range group.Value.Group() {
			put(a)
		}
	}

	for _, a := range Attrs(fields) {
		put(a)
	}

	out := make([]slog.Attr, 0, len(keys))
	for _, key := range keys {
		out = append(out, values[key])
	}

	return out
}

// Attrs converts a context map to attributes sorted by key. Nested maps become groups.
func Attrs(m Map) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(m))

	for _, key := range slices.Sorted(maps.Keys(m)) {
		switch v := m[key].(type) {
		case Map:
			attrs = append(attrs, slog.Attr{Key: key, Value: slog.GroupValue(Attrs(v)...)})
		case map[string]any:
			attrs = append(attrs, slog.Attr{Key: key, Value: slog.GroupValue(Attrs(v)...)})
		default:
			attrs = append(attrs, slog.Any(key, v))
		}
	}

	return attrs
}
