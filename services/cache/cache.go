package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by a CacheService when the key is absent
var ErrCacheMiss = errors.New("cache: miss")

// CacheService represents one storage tier of the extraction cache
type CacheService interface {
	// Name identifies the tier in stats and logs
	Name() string

	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key string) error

	// Keys lists every stored key
	Keys(ctx context.Context) ([]string, error)

	// Clear removes every stored key
	Clear(ctx context.Context) error
}
