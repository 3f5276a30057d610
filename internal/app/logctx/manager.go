package logctx

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jsamuelsen/contextify/internal/domain"
)

// Manager organizes providers by group, classifies them as static or dynamic,
// and answers merged context for a group.
//
// Manager is safe for concurrent use. Providers are invoked without any lock
// held, so a provider may itself log through a Handler backed by this Manager.
type Manager struct {
	repo     *Repository
	resolver Resolver

	mu      sync.RWMutex
	groups  map[string][]string
	static  map[string]Provider
	dynamic map[string]Provider
	order   []string // classification order, used for deterministic refreshes
	booted  bool

	bootMu sync.Mutex
}

// NewManager creates a manager that stores context in repo and resolves
// provider ids through resolver.
func NewManager(repo *Repository, resolver Resolver) *Manager {
	if repo == nil {
		repo = NewRepository()
	}

	return &Manager{
		repo:     repo,
		resolver: resolver,
		groups:   make(map[string][]string),
		static:   make(map[string]Provider),
		dynamic:  make(map[string]Provider),
	}
}

// Repository returns the backing repository.
func (m *Manager) Repository() *Repository {
	return m.repo
}

// AddProvider appends id to the membership list of group.
// Registering the same id twice is tolerated.
func (m *Manager) AddProvider(id, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.groups[group] = append(m.groups[group], id)
}

// BootProviders resolves every provider referenced by any group and files it as
// static or dynamic. Ids that are already classified are left alone, so calling
// BootProviders again only picks up providers added since the last call.
//
// Ids the resolver does not know are skipped; they are returned as a joined error
// matching domain.ErrUnknownProvider so callers can log them. Skipped ids simply
// contribute no context.
func (m *Manager) BootProviders() error {
	m.bootMu.Lock()
	defer m.bootMu.Unlock()

	var errs []error

	for _, id := range m.referencedIDs() {
		if m.isClassified(id) {
			continue
		}

		if m.resolver == nil {
			errs = append(errs, domain.NewUnknownProviderError(id))
			continue
		}

		provider, kind, err := m.resolver.Resolve(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if provider == nil || !kind.Valid() {
			errs = append(errs, fmt.Errorf("%w: %s resolved to %s provider %v", domain.ErrInvalidProvider, id, kind, provider))
			continue
		}

		m.classify(id, provider, kind)
	}

	m.mu.Lock()
	m.booted = true
	m.mu.Unlock()

	return errors.Join(errs...)
}

// UpdateStaticContext recomputes and stores every static provider's context.
func (m *Manager) UpdateStaticContext() error {
	return m.refresh(m.providers(KindStatic))
}

// UpdateStaticProvider recomputes and stores a single static provider.
// It reports false, without invoking anything, when id is unknown or names
// a dynamic provider.
func (m *Manager) UpdateStaticProvider(id string) (bool, error) {
	m.mu.RLock()
	provider, ok := m.static[id]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}

	return true, m.compute(id, provider)
}

// UpdateDynamicContext recomputes and stores every dynamic provider's context.
// Call it once per logging or notification event, before GetContext.
func (m *Manager) UpdateDynamicContext() error {
	return m.refresh(m.providers(KindDynamic))
}

// GetContext returns the merged context of all providers in group.
// Members are merged in declaration order and later members win on key
// collisions. An unknown group yields an empty map.
func (m *Manager) GetContext(group string) Map {
	return m.merge(group, nil)
}

// FreshContext recomputes every dynamic provider, as UpdateDynamicContext
// does, and returns the context of group. Dynamic members contribute the
// values computed by this call rather than whatever the repository holds, so
// concurrent callers never see each other's call site. A failing provider
// keeps its previous value and is reported in the returned error.
func (m *Manager) FreshContext(group string) (Map, error) {
	list := m.providers(KindDynamic)
	fresh := make(map[string]Map, len(list))

	var errs []error
	for _, np := range list {
		data, err := np.provider.Context()
		if err != nil {
			errs = append(errs, domain.NewProviderError(np.id, err))
			continue
		}

		m.repo.Set(np.id, data)
		fresh[np.id] = data
	}

	return m.merge(group, fresh), errors.Join(errs...)
}

// merge folds the members of group into one map, preferring overlay values
// over the repository.
func (m *Manager) merge(group string, overlay map[string]Map) Map {
	m.mu.RLock()
	members := slices.Clone(m.groups[group])
	m.mu.RUnlock()

	out := make(Map)
	seen := make(map[string]struct{}, len(members))

	for _, id := range members {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if data, ok := overlay[id]; ok {
			maps.Copy(out, data)
			continue
		}

		if data, ok := m.repo.Get(id); ok {
			maps.Copy(out, data)
		}
	}

	return out
}

// Groups returns the names of all known groups, sorted.
func (m *Manager) Groups() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.groups))
}

// Members returns the provider ids registered in group, in declaration order.
func (m *Manager) Members(group string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.groups[group])
}

// KindOf reports how id was classified at boot.
func (m *Manager) KindOf(id string) (Kind, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.static[id]; ok {
		return KindStatic, true
	}

	if _, ok := m.dynamic[id]; ok {
		return KindDynamic, true
	}

	return 0, false
}

// Booted reports whether BootProviders has run at least once.
func (m *Manager) Booted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.booted
}

// namedProvider is a classified provider paired with its id.
type namedProvider struct {
	id       string
	provider Provider
}

// referencedIDs returns every id referenced by any group, groups visited in name order.
func (m *Manager) referencedIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for _, group := range slices.Sorted(maps.Keys(m.groups)) {
		ids = append(ids, m.groups[group]...)
	}

	return ids
}

func (m *Manager) isClassified(id string) bool {
	_, ok := m.KindOf(id)
	return ok
}

func (m *Manager) classify(id string, provider Provider, kind Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case KindStatic:
		m.static[id] = provider
	case KindDynamic:
		m.dynamic[id] = provider
	default:
		return
	}

	m.order = append(m.order, id)
}

// providers returns the classified providers of one kind in classification order.
func (m *Manager) providers(kind Kind) []namedProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := m.static
	if kind == KindDynamic {
		bucket = m.dynamic
	}

	out := make([]namedProvider, 0, len(bucket))
	for _, id := range m.order {
		if p, ok := bucket[id]; ok {
			out = append(out, namedProvider{id: id, provider: p})
		}
	}

	return out
}

// refresh computes every provider in list. A failing provider does not stop the others.
func (m *Manager) refresh(list []namedProvider) error {
	var errs []error

	for _, np := range list {
		if err := m.compute(np.id, np.provider); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m *Manager) compute(id string, provider Provider) error {
	data, err := provider.Context()
	if err != nil {
		return domain.NewProviderError(id, err)
	}

	m.repo.Set(id, data)

	return nil
}
