package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/logger"
	apperrors "sjsage522/metaworker/pkg/errors"
)

// SnapshotVersion is the export document format version
const SnapshotVersion = 1

// Entry is the envelope stored in every tier
type Entry struct {
	Key            string          `json:"key"`
	URL            string          `json:"url"`
	Payload        json.RawMessage `json:"payload"`
	StoredAtMs     int64           `json:"stored_at_ms"`
	ExpiresAtMs    int64           `json:"expires_at_ms"`
	LastAccessedMs int64           `json:"last_accessed_ms"`
	AccessCount    int64           `json:"access_count"`
	SizeBytes      int             `json:"size_bytes"`
}

func (e *Entry) expired(now time.Time) bool {
	return now.UnixMilli() >= e.ExpiresAtMs
}

// Snapshot is the exported cache document
type Snapshot struct {
	Version      int     `json:"version"`
	ExportedAtMs int64   `json:"exported_at_ms"`
	Backend      string  `json:"backend"`
	Entries      []Entry `json:"entries"`
}

// KeyFor returns the stable cache key of a target URL
func KeyFor(rawURL string) string {
	sum := sha256.Sum256([]byte(helpers.NormalizeURL(rawURL)))
	return hex.EncodeToString(sum[:])
}

// Options configures a Store
type Options struct {
	// Primary is the preferred tier; nil means memory only
	Primary       CacheService
	Fallback      CacheService
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
	Now           func() time.Time
	Logger        *logger.Logger
}

// Store is the tiered extraction cache. Reads and writes go to the primary
// tier and fall back to the process-local tier when the primary fails.
type Store struct {
	primary  CacheService
	fallback CacheService
	ttl      time.Duration
	max      int
	sweep    time.Duration
	now      func() time.Time
	log      *logger.Logger

	mu    sync.Mutex
	order *list.List
	index map[string]*list.Element

	hits   atomic.Int64
	misses atomic.Int64
}

// NewStore builds a Store and seeds its recency index from the tier contents
func NewStore(ctx context.Context, opts Options) *Store {
	if opts.Fallback == nil {
		opts.Fallback = NewMemoryService()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.ForCache()
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	s := &Store{
		primary:  opts.Primary,
		fallback: opts.Fallback,
		ttl:      opts.TTL,
		max:      opts.MaxEntries,
		sweep:    opts.SweepInterval,
		now:      opts.Now,
		log:      opts.Logger,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
	if keys, err := s.keys(ctx); err == nil {
		s.mu.Lock()
		for _, k := range keys {
			s.index[k] = s.order.PushBack(k)
		}
		s.mu.Unlock()
	}
	return s
}

// Backend names the tier currently serving requests
func (s *Store) Backend() string {
	if s.primary != nil {
		return s.primary.Name()
	}
	return s.fallback.Name()
}

// TTL is the default time-to-live for new entries
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the payload stored under key. Expired entries are deleted and
// reported as a miss. A hit refreshes the entry's access stamp and count.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	entry, ok := s.load(ctx, key)
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	now := s.now()
	if entry.expired(now) {
		s.remove(ctx, key)
		s.misses.Add(1)
		return nil, false
	}
	entry.LastAccessedMs = now.UnixMilli()
	entry.AccessCount++

	// refresh only while the key is still indexed, otherwise the write-back
	// would resurrect an entry removed after load
	s.mu.Lock()
	if el, live := s.index[key]; live {
		s.write(ctx, *entry, time.Duration(entry.ExpiresAtMs-now.UnixMilli())*time.Millisecond)
		s.order.MoveToFront(el)
	}
	s.mu.Unlock()
	s.hits.Add(1)
	return entry.Payload, true
}

// Set stores payload under key for ttl (the store default when ttl <= 0)
func (s *Store) Set(ctx context.Context, key, rawURL string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()
	s.write(ctx, Entry{
		Key:            key,
		URL:            rawURL,
		Payload:        payload,
		StoredAtMs:     now.UnixMilli(),
		ExpiresAtMs:    now.Add(ttl).UnixMilli(),
		LastAccessedMs: now.UnixMilli(),
		SizeBytes:      len(payload),
	}, ttl)
	s.touch(key)
	s.evict(ctx)
}

// Delete removes key and reports whether it was present
func (s *Store) Delete(ctx context.Context, key string) bool {
	_, ok := s.load(ctx, key)
	s.remove(ctx, key)
	return ok
}

// ListKeys returns every stored key
func (s *Store) ListKeys(ctx context.Context) []string {
	keys, err := s.keys(ctx)
	if err != nil {
		return []string{}
	}
	return keys
}

// Clear empties every tier
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.order.Init()
	s.index = make(map[string]*list.Element)
	s.mu.Unlock()
	if s.primary != nil {
		if err := s.primary.Clear(ctx); err != nil {
			s.warn(err, "clear primary tier")
		}
	}
	if err := s.fallback.Clear(ctx); err != nil {
		s.warn(err, "clear fallback tier")
	}
}

// Stats scans every key and summarises the cache contents
func (s *Store) Stats(ctx context.Context) model.CacheStats {
	stats := model.CacheStats{Backend: s.Backend()}
	now := s.now()
	for _, key := range s.ListKeys(ctx) {
		raw, err := s.read(ctx, key)
		if err != nil {
			continue
		}
		stats.TotalItems++
		stats.TotalSize += int64(len(raw))
		var e Entry
		if json.Unmarshal(raw, &e) != nil || e.expired(now) {
			stats.ExpiredItems++
		}
	}
	hits, misses := s.hits.Load(), s.misses.Load()
	if hits+misses > 0 {
		stats.HitRate = float64(hits) / float64(hits+misses)
	}
	return stats
}

// Sweep deletes every expired entry and returns how many were removed
func (s *Store) Sweep(ctx context.Context) int {
	now := s.now()
	removed := 0
	for _, key := range s.ListKeys(ctx) {
		e, ok := s.load(ctx, key)
		if !ok || e.expired(now) {
			s.remove(ctx, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the configured interval until ctx is done
func (s *Store) StartSweeper(ctx context.Context) {
	if s.sweep <= 0 {
		return
	}
	ticker := time.NewTicker(s.sweep)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(ctx); n > 0 {
					s.log.Debug().Int("removed", n).Msg("Swept expired cache entries")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Export returns every live entry
func (s *Store) Export(ctx context.Context) *Snapshot {
	now := s.now()
	snap := &Snapshot{
		Version:      SnapshotVersion,
		ExportedAtMs: now.UnixMilli(),
		Backend:      s.Backend(),
		Entries:      []Entry{},
	}
	for _, key := range s.ListKeys(ctx) {
		e, ok := s.load(ctx, key)
		if !ok || e.expired(now) {
			continue
		}
		snap.Entries = append(snap.Entries, *e)
	}
	return snap
}

// Import writes the live entries of snap back with their original expiry
// and returns how many were restored.
func (s *Store) Import(ctx context.Context, snap *Snapshot) (int, error) {
	if snap == nil {
		return 0, apperrors.NewValidation("cache", "empty snapshot")
	}
	if snap.Version != SnapshotVersion {
		return 0, apperrors.NewValidation("cache", "unsupported snapshot version")
	}
	now := s.now()
	restored := 0
	for _, e := range snap.Entries {
		if e.Key == "" || len(e.Payload) == 0 || e.expired(now) {
			continue
		}
		ttl := time.Duration(e.ExpiresAtMs-now.UnixMilli()) * time.Millisecond
		s.write(ctx, e, ttl)
		s.touch(e.Key)
		restored++
	}
	s.evict(ctx)
	return restored, nil
}

func (s *Store) load(ctx context.Context, key string) (*Entry, bool) {
	raw, err := s.read(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.warn(err, "read entry")
		}
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.warn(err, "decode entry")
		s.remove(ctx, key)
		return nil, false
	}
	return &e, true
}

func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	if s.primary != nil {
		raw, err := s.primary.Get(ctx, key)
		if err == nil || errors.Is(err, ErrCacheMiss) {
			return raw, err
		}
		s.warn(err, "primary tier read failed, using fallback")
	}
	return s.fallback.Get(ctx, key)
}

func (s *Store) write(ctx context.Context, e Entry, ttl time.Duration) {
	raw, err := json.Marshal(e)
	if err != nil {
		s.warn(err, "encode entry")
		return
	}
	if s.primary != nil {
		err := s.primary.Set(ctx, e.Key, raw, ttl)
		if err == nil {
			return
		}
		s.warn(err, "primary tier write failed, using fallback")
	}
	if err := s.fallback.Set(ctx, e.Key, raw, ttl); err != nil {
		s.warn(err, "fallback tier write failed")
	}
}

func (s *Store) keys(ctx context.Context) ([]string, error) {
	if s.primary != nil {
		keys, err := s.primary.Keys(ctx)
		if err == nil {
			return keys, nil
		}
		s.warn(err, "primary tier listing failed, using fallback")
	}
	return s.fallback.Keys(ctx)
}

// remove unindexes key before deleting it so a concurrent Get cannot write
// it back
func (s *Store) remove(ctx context.Context, key string) {
	s.mu.Lock()
	if el, ok := s.index[key]; ok {
		s.order.Remove(el)
		delete(s.index, key)
	}
	s.mu.Unlock()
	if s.primary != nil {
		if err := s.primary.Delete(ctx, key); err != nil {
			s.warn(err, "delete from primary tier")
		}
	}
	if err := s.fallback.Delete(ctx, key); err != nil {
		s.warn(err, "delete from fallback tier")
	}
}

func (s *Store) touch(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.index[key]; ok {
		s.order.MoveToFront(el)
		return
	}
	s.index[key] = s.order.PushFront(key)
}

// evict drops least-recently-accessed entries until the ceiling holds
func (s *Store) evict(ctx context.Context) {
	if s.max <= 0 {
		return
	}
	for {
		s.mu.Lock()
		if s.order.Len() <= s.max {
			s.mu.Unlock()
			return
		}
		key := s.order.Back().Value.(string)
		s.mu.Unlock()
		s.remove(ctx, key)
	}
}

func (s *Store) warn(err error, msg string) {
	s.log.Warn().Err(apperrors.NewCache(s.Backend(), msg, err)).Msg("Cache operation failed")
}
