package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryService is the process-local tier. Expiry is enforced by the Store,
// so the tier keeps values until they are deleted.
type MemoryService struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryService creates an empty in-process tier
func NewMemoryService() *MemoryService {
	return &MemoryService{items: make(map[string][]byte)}
}

func (m *MemoryService) Name() string { return "memory" }

func (m *MemoryService) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryService) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.items[key] = v
	m.mu.Unlock()
	return nil
}

func (m *MemoryService) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryService) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryService) Clear(_ context.Context) error {
	m.mu.Lock()
	m.items = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}
