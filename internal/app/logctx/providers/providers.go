// Package providers implements the built-in context providers.
package providers

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime/metrics"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/contextify/internal/app/logctx"
)

// Built-in provider ids, as referenced from configuration.
const (
	IDProcessID       = "pid"
	IDHostname        = "hostname"
	IDEnvironment     = "environment"
	IDTraceID         = "trace_id"
	IDDateTime        = "datetime"
	IDPeakMemoryUsage = "peak_memory_usage"
	IDCaller          = "caller"
)

// DateTimeLayout matches the timestamp format of conventional text logs.
const DateTimeLayout = time.DateTime

// memoryMetric is the runtime metric reporting all memory mapped by the Go runtime.
const memoryMetric = "/memory/classes/total:bytes"

// Options configures the built-in providers.
type Options struct {
	// Environment is reported by the environment provider.
	Environment string

	// BasePath is stripped from caller file paths. Defaults to the working directory.
	BasePath string

	// SkipPrefixes lists function name prefixes the caller provider skips.
	// Defaults to DefaultSkipPrefixes().
	SkipPrefixes []string

	// Now overrides the clock of the datetime provider.
	Now func() time.Time
}

// RegisterDefaults registers every built-in provider in catalog.
func RegisterDefaults(catalog *logctx.Catalog, opts Options) error {
	basePath := opts.BasePath
	if basePath == "" {
		if wd, err := os.Getwd(); err == nil {
			basePath = wd
		}
	}

	skip := opts.SkipPrefixes
	if len(skip) == 0 {
		skip = DefaultSkipPrefixes()
	}

	errs := []error{
		catalog.RegisterStatic(IDProcessID, ProcessID{}),
		catalog.RegisterStatic(IDHostname, NewHostname()),
		catalog.RegisterStatic(IDEnvironment, Environment{Name: opts.Environment}),
		catalog.Register(IDTraceID, logctx.KindStatic, func() logctx.Provider { return TraceID{} }),
		catalog.RegisterDynamic(IDDateTime, NewDateTime(opts.Now)),
		catalog.RegisterDynamic(IDPeakMemoryUsage, PeakMemoryUsage{}),
		catalog.RegisterDynamic(IDCaller, NewCallSite(basePath, skip)),
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("registering built-in providers: %w", err)
	}

	return nil
}

// ProcessID reports the current process id.
type ProcessID struct{}

// Context implements logctx.Provider.
func (ProcessID) Context() (logctx.Map, error) {
	return logctx.Map{"pid": os.Getpid()}, nil
}

// Hostname reports the machine hostname.
type Hostname struct {
	lookup func() (string, error)
}

// NewHostname creates a hostname provider backed by os.Hostname.
func NewHostname() Hostname {
	return Hostname{lookup: os.Hostname}
}

// Context implements logctx.Provider.
func (h Hostname) Context() (logctx.Map, error) {
	lookup := h.lookup
	if lookup == nil {
		lookup = os.Hostname
	}

	name, err := lookup()
	if err != nil {
		return nil, fmt.Errorf("looking up hostname: %w", err)
	}

	return logctx.Map{"hostname": name}, nil
}

// Environment reports the application environment name (local, dev, prod...).
type Environment struct {
	Name string
}

// Context implements logctx.Provider.
func (e Environment) Context() (logctx.Map, error) {
	return logctx.Map{"environment": e.Name}, nil
}

// TraceID reports a random 16 hex character id. Registered as static, the id is
// computed at boot and tags every log line of the process until refreshed.
type TraceID struct{}

// Context implements logctx.Provider. Each call yields a fresh id.
func (TraceID) Context() (logctx.Map, error) {
	id := uuid.New()

	return logctx.Map{"trace_id": hex.EncodeToString(id[:8])}, nil
}

// DateTime reports the current wall-clock time.
type DateTime struct {
	now func() time.Time
}

// NewDateTime creates a datetime provider. A nil clock uses time.Now.
func NewDateTime(now func() time.Time) DateTime {
	if now == nil {
		now = time.Now
	}

	return DateTime{now: now}
}

// Context implements logctx.Provider.
func (d DateTime) Context() (logctx.Map, error) {
	now := d.now
	if now == nil {
		now = time.Now
	}

	return logctx.Map{"datetime": now().Format(DateTimeLayout)}, nil
}

// PeakMemoryUsage reports the bytes of memory mapped by the Go runtime.
type PeakMemoryUsage struct{}

// Context implements logctx.Provider.
func (PeakMemoryUsage) Context() (logctx.Map, error) {
	sample := []metrics.Sample{{Name: memoryMetric}}
	metrics.Read(sample)

	if sample[0].Value.Kind() != metrics.KindUint64 {
		return nil, fmt.Errorf("runtime metric %s unavailable", memoryMetric)
	}

	return logctx.Map{"peak_memory_usage": sample[0].Value.Uint64()}, nil
}
