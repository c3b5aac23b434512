package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sjsage522/metaworker/logger"
)

// clock is a manually advanced time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, opts Options) (*Store, *clock) {
	t.Helper()
	c := newClock()
	opts.Now = c.Now
	opts.Logger = logger.Nop()
	return NewStore(context.Background(), opts), c
}

func TestKeyForIsStable(t *testing.T) {
	assert.Equal(t, KeyFor("https://WWW.javbus.com/IPX-156/"), KeyFor("https://www.javbus.com/IPX-156#top"))
	assert.NotEqual(t, KeyFor("https://www.javbus.com/IPX-156"), KeyFor("https://www.javbus.com/IPX-157"))
	assert.Len(t, KeyFor("https://example.com"), 64)
}

func TestExpiredEntryIsMissAndRemoved(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStore(t, Options{})
	key := KeyFor("https://example.com/IPX-156")

	s.Set(ctx, key, "https://example.com/IPX-156", []byte(`{"title":"x"}`), 1000*time.Millisecond)
	c.Advance(500 * time.Millisecond)
	payload, ok := s.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, `{"title":"x"}`, string(payload))

	c.Advance(1000 * time.Millisecond)
	_, ok = s.Get(ctx, key)
	assert.False(t, ok)
	assert.NotContains(t, s.ListKeys(ctx), key)
}

func TestLeastRecentlyAccessedIsEvicted(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, Options{MaxEntries: 2})

	s.Set(ctx, "a", "", []byte(`1`), time.Hour)
	s.Set(ctx, "b", "", []byte(`2`), time.Hour)
	_, ok := s.Get(ctx, "a")
	require.True(t, ok)
	s.Set(ctx, "c", "", []byte(`3`), time.Hour)

	assert.ElementsMatch(t, []string{"a", "c"}, s.ListKeys(ctx))
}

func TestStatsAndSweep(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStore(t, Options{})

	s.Set(ctx, "short", "", []byte(`1`), time.Second)
	s.Set(ctx, "long", "", []byte(`2`), time.Hour)
	s.Get(ctx, "long")
	s.Get(ctx, "missing")
	c.Advance(2 * time.Second)

	stats := s.Stats(ctx)
	assert.Equal(t, 2, stats.TotalItems)
	assert.Equal(t, 1, stats.ExpiredItems)
	assert.Greater(t, stats.TotalSize, int64(0))
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
	assert.Equal(t, "memory", stats.Backend)

	assert.Equal(t, 1, s.Sweep(ctx))
	assert.Equal(t, []string{"long"}, s.ListKeys(ctx))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, c := newTestStore(t, Options{})
	src.Set(ctx, "k1", "https://example.com/a", []byte(`{"code":"ABP-001"}`), time.Hour)
	src.Set(ctx, "k2", "https://example.com/b", []byte(`{"code":"ABP-002"}`), time.Minute)
	src.Set(ctx, "gone", "https://example.com/c", []byte(`{}`), time.Second)
	c.Advance(2 * time.Second)

	snap := src.Export(ctx)
	require.Len(t, snap.Entries, 2)

	dst, _ := newTestStore(t, Options{})
	dst.now = c.Now
	n, err := dst.Import(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, key := range []string{"k1", "k2"} {
		want, ok := src.Get(ctx, key)
		require.True(t, ok)
		got, ok := dst.Get(ctx, key)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, err = dst.Import(ctx, &Snapshot{Version: 99})
	assert.Error(t, err)
	_, err = dst.Import(ctx, nil)
	assert.Error(t, err)
}

func TestClearAndDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, Options{})
	s.Set(ctx, "a", "", []byte(`1`), 0)
	s.Set(ctx, "b", "", []byte(`2`), 0)

	assert.True(t, s.Delete(ctx, "a"))
	assert.False(t, s.Delete(ctx, "a"))
	s.Clear(ctx)
	assert.Empty(t, s.ListKeys(ctx))
}

// brokenTier fails every operation
type brokenTier struct{}

var _ CacheService = (*brokenTier)(nil)

var errBroken = errors.New("connection refused")

func (brokenTier) Name() string { return "broken" }
func (brokenTier) Get(context.Context, string) ([]byte, error) {
	return nil, errBroken
}
func (brokenTier) Set(context.Context, string, []byte, time.Duration) error { return errBroken }
func (brokenTier) Delete(context.Context, string) error                     { return errBroken }
func (brokenTier) Keys(context.Context) ([]string, error)                   { return nil, errBroken }
func (brokenTier) Clear(context.Context) error                              { return errBroken }

func TestFailingPrimaryFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, Options{Primary: brokenTier{}})

	s.Set(ctx, "k", "", []byte(`"v"`), time.Hour)
	payload, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, `"v"`, string(payload))
	assert.Equal(t, []string{"k"}, s.ListKeys(ctx))
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, Options{MaxEntries: 8})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := KeyFor("https://example.com/" + string(rune('a'+i)))
			s.Set(ctx, key, "", []byte(`{}`), time.Hour)
			s.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, len(s.ListKeys(ctx)), 8)
}

func TestBoltTier(t *testing.T) {
	ctx := context.Background()
	b, err := NewBoltService(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	defer b.Close()

	s, _ := newTestStore(t, Options{Primary: b})
	assert.Equal(t, "bolt", s.Backend())

	s.Set(ctx, "k", "https://example.com", []byte(`{"a":1}`), time.Hour)
	payload, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(payload))

	_, err = b.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	s.Clear(ctx)
	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestHitRefreshesAccessStamp(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStore(t, Options{})
	s.Set(ctx, "k", "https://example.com/a", []byte(`{"code":"ABP-001"}`), time.Hour)
	stored := c.Now().UnixMilli()

	c.Advance(time.Minute)
	_, ok := s.Get(ctx, "k")
	require.True(t, ok)
	_, ok = s.Get(ctx, "k")
	require.True(t, ok)

	snap := s.Export(ctx)
	require.Len(t, snap.Entries, 1)
	e := snap.Entries[0]
	assert.Equal(t, stored, e.StoredAtMs)
	assert.Equal(t, stored+time.Minute.Milliseconds(), e.LastAccessedMs)
	assert.Equal(t, int64(2), e.AccessCount)
	assert.Equal(t, len(`{"code":"ABP-001"}`), e.SizeBytes)
	assert.Equal(t, stored+time.Hour.Milliseconds(), e.ExpiresAtMs, "a hit keeps the original expiry")
}

// racingTier runs onGet once, after reading the value but before returning it
type racingTier struct {
	*MemoryService
	fired atomic.Bool
	onGet func()
}

func (r *racingTier) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.MemoryService.Get(ctx, key)
	if err == nil && r.onGet != nil && r.fired.CompareAndSwap(false, true) {
		r.onGet()
	}
	return raw, err
}

func TestHitDoesNotResurrectRemovedEntry(t *testing.T) {
	ctx := context.Background()
	for name, race := range map[string]func(s *Store, key string){
		"delete": func(s *Store, key string) { s.Delete(ctx, key) },
		"clear":  func(s *Store, _ string) { s.Clear(ctx) },
	} {
		t.Run(name, func(t *testing.T) {
			tier := &racingTier{MemoryService: NewMemoryService()}
			s, _ := newTestStore(t, Options{Primary: tier})
			key := KeyFor("https://example.com/IPX-156")
			s.Set(ctx, key, "https://example.com/IPX-156", []byte(`{"title":"x"}`), time.Hour)

			tier.onGet = func() { race(s, key) }
			_, ok := s.Get(ctx, key)
			assert.True(t, ok, "the read completed before the removal")

			assert.Empty(t, s.ListKeys(ctx), "removed entry must stay removed")
			_, ok = s.Get(ctx, key)
			assert.False(t, ok)
		})
	}
}
