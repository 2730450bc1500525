package cache

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepository keeps entries in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	domains map[Domain]map[string][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{domains: make(map[Domain]map[string][]byte)}
}

func (r *MemoryRepository) Get(_ context.Context, domain Domain, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.domains[domain][key]
	if !ok {
		return nil, nil
	}
	return slices.Clone(v), nil
}

func (r *MemoryRepository) Set(_ context.Context, domain Domain, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.domains[domain]
	if !ok {
		d = make(map[string][]byte)
		r.domains[domain] = d
	}
	if value == nil {
		value = []byte{}
	}
	d[key] = slices.Clone(value)
	return nil
}

func (r *MemoryRepository) Remove(_ context.Context, domain Domain, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.domains[domain], k)
	}
	return nil
}

func (r *MemoryRepository) Keys(_ context.Context, domain Domain) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.domains[domain]))
	for k := range r.domains[domain] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (r *MemoryRepository) Clear(_ context.Context, domain Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.domains, domain)
	return nil
}
