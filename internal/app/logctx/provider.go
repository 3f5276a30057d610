package logctx

import (
	"fmt"
	"maps"
	"sync"

	"github.com/jsamuelsen/contextify/internal/domain"
)

// Well-known group names.
const (
	GroupLog          = "log"
	GroupNotification = "notification"
)

// Map is the key/value result of one provider invocation.
type Map map[string]any

// Clone returns a shallow copy of the map. A nil map clones to an empty one.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	maps.Copy(out, m)
	return out
}

// Kind tags a provider as static (cached) or dynamic (recomputed per event).
type Kind int

const (
	// KindStatic values are computed at boot and on explicit refresh only.
	KindStatic Kind = iota

	// KindDynamic values are recomputed on every logging or notification event.
	KindDynamic
)

// Valid reports whether k is KindStatic or KindDynamic.
func (k Kind) Valid() bool {
	return k == KindStatic || k == KindDynamic
}

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Provider produces a small named fact about the running process.
// Implementations must return promptly; they run inline on the logging path.
type Provider interface {
	Context() (Map, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func() (Map, error)

// Context calls f().
func (f ProviderFunc) Context() (Map, error) {
	return f()
}

// Factory constructs a provider instance. It is called at most once per Manager boot.
type Factory func() Provider

// Definition pairs a provider factory with its capability tag.
type Definition struct {
	Kind    Kind
	Factory Factory
}

// Resolver turns a provider id into a ready instance and its kind.
type Resolver interface {
	Resolve(id string) (Provider, Kind, error)
}

// Catalog is a thread-safe Resolver backed by registered definitions.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]Definition)}
}

// Register adds a provider definition under id.
// Returns domain.ErrDuplicateProvider if id is already registered and
// domain.ErrInvalidProvider for a nil factory or an unknown kind.
func (c *Catalog) Register(id string, kind Kind, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("%w: %s has no factory", domain.ErrInvalidProvider, id)
	}

	if !kind.Valid() {
		return fmt.Errorf("%w: %s has kind %s", domain.ErrInvalidProvider, id, kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.defs[id]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateProvider, id)
	}

	c.defs[id] = Definition{Kind: kind, Factory: factory}

	return nil
}

// RegisterStatic registers a provider instance as static.
func (c *Catalog) RegisterStatic(id string, p Provider) error {
	return c.registerInstance(id, KindStatic, p)
}

// RegisterDynamic registers a provider instance as dynamic.
func (c *Catalog) RegisterDynamic(id string, p Provider) error {
	return c.registerInstance(id, KindDynamic, p)
}

func (c *Catalog) registerInstance(id string, kind Kind, p Provider) error {
	if p == nil {
		return fmt.Errorf("%w: %s is nil", domain.ErrInvalidProvider, id)
	}

	return c.Register(id, kind, func() Provider { return p })
}

// Resolve constructs the provider registered under id.
func (c *Catalog) Resolve(id string) (Provider, Kind, error) {
	c.mu.RLock()
	def, ok := c.defs[id]
	c.mu.RUnlock()

	if !ok {
		return nil, 0, domain.NewUnknownProviderError(id)
	}

	p := def.Factory()
	if p == nil {
		return nil, 0, fmt.Errorf("%w: factory for %s returned nil", domain.ErrInvalidProvider, id)
	}

	return p, def.Kind, nil
}

// IDs returns the registered provider ids.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.defs))
	for id := range c.defs {
		ids = append(ids, id)
	}

	return ids
}
