package logctx

import (
	"maps"
	"slices"

	"github.com/rs/zerolog"
)

// ZerologHook injects the "log" group context into zerolog events as an "extra" dict.
//
//	logger := zerolog.New(os.Stdout).Hook(logctx.NewZerologHook(mgr))
type ZerologHook struct {
	processor *Processor
}

// NewZerologHook creates a hook reading context from source.
func NewZerologHook(source ContextSource, opts ...Option) ZerologHook {
	return ZerologHook{processor: NewProcessor(source, opts...)}
}

// Run implements zerolog.Hook.
func (h ZerologHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	extra := h.processor.context()
	if len(extra) == 0 {
		return
	}

	dict := zerolog.Dict()
	for _, key := range slices.Sorted(maps.Keys(extra)) {
		dict = dict.Interface(key, extra[key])
	}

	e.Dict(ExtraKey, dict)
}
