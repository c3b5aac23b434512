package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemcacheExpiration(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int32(0), memcacheExpiration(0, now))
	assert.Equal(t, int32(1), memcacheExpiration(300*time.Millisecond, now))
	assert.Equal(t, int32(2), memcacheExpiration(1500*time.Millisecond, now))
	assert.Equal(t, int32(86400), memcacheExpiration(24*time.Hour, now))
	assert.Equal(t, int32(30*86400), memcacheExpiration(30*24*time.Hour, now))

	long := 45 * 24 * time.Hour
	assert.Equal(t, int32(now.Add(long).Unix()), memcacheExpiration(long, now))
}

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	ctx := context.Background()
	mc := NewMemcacheService("localhost:11211")

	// Test if memcached is available
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}
	require.NoError(t, mc.Clear(ctx))

	// Set a value
	err := mc.Set(ctx, "test_key", []byte("test_value"), 10*time.Second)
	assert.NoError(t, err)

	// Get the value
	value, err := mc.Get(ctx, "test_key")
	assert.NoError(t, err)
	assert.Equal(t, "test_value", string(value))

	keys, err := mc.Keys(ctx)
	assert.NoError(t, err)
	assert.Contains(t, keys, "test_key")

	// Delete the value
	err = mc.Delete(ctx, "test_key")
	assert.NoError(t, err)

	// Try to get the deleted value
	_, err = mc.Get(ctx, "test_key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

// This test requires a running redis instance
func TestRedisService(t *testing.T) {
	ctx := context.Background()
	r := NewRedisService(RedisOptions{Addr: "localhost:6379", Prefix: "metaworker:test:"})
	defer r.Close()

	if err := r.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	require.NoError(t, r.Clear(ctx))

	require.NoError(t, r.Set(ctx, "k", []byte("v"), time.Minute))
	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))

	keys, err := r.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	require.NoError(t, r.Clear(ctx))
	_, err = r.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
