package cache

import (
	"context"
	"io"

	"sjsage522/metaworker/config"
	"sjsage522/metaworker/logger"
)

// NewFromConfig builds the Store for cfg.CacheBackend. An unreachable
// durable tier degrades to memory only. The returned closer releases the
// durable tier's connection.
func NewFromConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Store, io.Closer) {
	if log == nil {
		log = logger.ForCache()
	}
	var (
		primary CacheService
		closer  io.Closer = nopCloser{}
	)

	switch cfg.CacheBackend {
	case "redis":
		r := NewRedisService(RedisOptions{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
			Prefix:   cfg.RedisKeyPrefix,
		})
		if err := r.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, using memory cache")
			r.Close()
		} else {
			primary, closer = r, r
		}
	case "memcache":
		m := NewMemcacheService(cfg.MemcacheAddr)
		if err := m.Ping(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unavailable, using memory cache")
		} else {
			primary = m
		}
	case "bolt":
		b, err := NewBoltService(cfg.BoltPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.BoltPath).Msg("Bolt unavailable, using memory cache")
		} else {
			primary, closer = b, b
		}
	}

	store := NewStore(ctx, Options{
		Primary:       primary,
		TTL:           cfg.CacheTTL,
		MaxEntries:    cfg.CacheMaxEntries,
		SweepInterval: cfg.CacheSweepInterval,
		Logger:        log,
	})
	log.Info().Str("backend", store.Backend()).Msg("Cache initialized")
	return store, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
