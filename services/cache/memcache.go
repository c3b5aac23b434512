package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// memcached cannot enumerate keys, so the tier keeps its own index entry
const memcacheIndexKey = "metaworker:index"

// memcached reads expirations above this many seconds as a unix timestamp
const memcacheMaxRelative = 30 * 24 * time.Hour

// memcacheExpiration converts ttl to memcached's expiration field. Partial
// seconds round up since 0 means never expire.
func memcacheExpiration(ttl time.Duration, now time.Time) int32 {
	if ttl <= 0 {
		return 0
	}
	if ttl > memcacheMaxRelative {
		return int32(now.Add(ttl).Unix())
	}
	secs := int32(ttl / time.Second)
	if ttl%time.Second != 0 {
		secs++
	}
	return secs
}

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
	mu     sync.Mutex
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

func (m *MemcacheService) Name() string { return "memcache" }

// Ping reports whether the server answers
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(_ context.Context, key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	if err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: memcacheExpiration(expiration, time.Now()),
	}); err != nil {
		return err
	}
	return m.updateIndex(func(idx map[string]struct{}) { idx[key] = struct{}{} })
}

// Delete removes a value from memcache
func (m *MemcacheService) Delete(_ context.Context, key string) error {
	err := m.client.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return m.updateIndex(func(idx map[string]struct{}) { delete(idx, key) })
}

// Keys lists the indexed keys that are still present on the server
func (m *MemcacheService) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	idx, err := m.readIndex()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(idx) == 0 {
		return []string{}, nil
	}

	names := make([]string, 0, len(idx))
	for k := range idx {
		names = append(names, k)
	}
	items, err := m.client.GetMulti(names)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear deletes every indexed key and the index itself
func (m *MemcacheService) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.readIndex()
	if err != nil {
		return err
	}
	for k := range idx {
		if err := m.client.Delete(k); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			return err
		}
	}
	if err := m.client.Delete(memcacheIndexKey); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}
	return nil
}

func (m *MemcacheService) readIndex() (map[string]struct{}, error) {
	idx := make(map[string]struct{})
	item, err := m.client.Get(memcacheIndexKey)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal(item.Value, &keys); err != nil {
		// a corrupt index only loses enumeration, not values
		return idx, nil
	}
	for _, k := range keys {
		idx[k] = struct{}{}
	}
	return idx, nil
}

func (m *MemcacheService) updateIndex(fn func(map[string]struct{})) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.readIndex()
	if err != nil {
		return err
	}
	fn(idx)
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return m.client.Set(&memcache.Item{Key: memcacheIndexKey, Value: data})
}
