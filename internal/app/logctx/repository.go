package logctx

import "sync"

// Repository stores the most recent context map of every provider, keyed by provider id.
// Entries live for the lifetime of the process.
type Repository struct {
	mu   sync.RWMutex
	data map[string]Map
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{data: make(map[string]Map)}
}

// Set stores data for a provider, overwriting any previous entry.
func (r *Repository) Set(id string, data Map) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[id] = data.Clone()
}

// Get returns the stored entry for a provider.
func (r *Repository) Get(id string) (Map, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.data[id]
	if !ok {
		return nil, false
	}

	return data.Clone(), true
}

// All returns a snapshot of every stored entry.
func (r *Repository) All() map[string]Map {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Map, len(r.data))
	for id, data := range r.data {
		out[id] = data.Clone()
	}

	return out
}

// Len returns the number of stored entries.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.data)
}
