package providers

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/jsamuelsen/contextify/internal/app/logctx"
)

// modulePath prefixes the function names of this module's packages.
const modulePath = "github.com/jsamuelsen/contextify"

// maxCallDepth caps the number of stack frames inspected per call.
const maxCallDepth = 20

// DefaultSkipPrefixes returns the function name prefixes of the logging
// machinery itself, so the reported caller is the code that logged.
func DefaultSkipPrefixes() []string {
	return []string{
		"runtime.",
		"log/slog.",
		"github.com/rs/zerolog.",
		modulePath + "/internal/app.",
		modulePath + "/internal/app/logctx.",
		modulePath + "/internal/app/logctx/providers.",
		modulePath + "/internal/platform/logging.",
	}
}

// CallSite reports the file:line of the first stack frame outside the skip list.
type CallSite struct {
	basePath string
	skip     []string
}

// NewCallSite creates a caller provider. basePath is stripped from file paths.
func NewCallSite(basePath string, skip []string) CallSite {
	return CallSite{
		basePath: strings.TrimSuffix(basePath, "/"),
		skip:     skip,
	}
}

// Context implements logctx.Provider. The "caller" value is nil when every
// inspected frame is skipped.
func (c CallSite) Context() (logctx.Map, error) {
	pcs := make([]uintptr, maxCallDepth)
	n := runtime.Callers(2, pcs) // skip runtime.Callers and this method

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.File != "" && !c.skipped(frame.Function) {
			return logctx.Map{"caller": c.relative(frame.File) + ":" + strconv.Itoa(frame.Line)}, nil
		}

		if !more {
			break
		}
	}

	return logctx.Map{"caller": nil}, nil
}

func (c CallSite) skipped(function string) bool {
	for _, prefix := range c.skip {
		if strings.HasPrefix(function, prefix) {
			return true
		}
	}

	return false
}

func (c CallSite) relative(file string) string {
	if c.basePath != "" && strings.HasPrefix(file, c.basePath+"/") {
		return file[len(c.basePath)+1:]
	}

	return file
}
