// Package extractor sequences cache lookup, detail URL resolution, fetching,
// parsing and normalization for single items and batches.
package extractor

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"sjsage522/metaworker/config"
	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/adapter"
	"sjsage522/metaworker/internal/metrics"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/internal/normalize"
	"sjsage522/metaworker/internal/ranker"
	"sjsage522/metaworker/logger"
	"sjsage522/metaworker/pkg/errors"
	"sjsage522/metaworker/services/cache"
	"sjsage522/metaworker/services/publisher"
)

// Defaults apply when a call leaves an option unset
type Defaults struct {
	Timeout        time.Duration
	RetryDelay     time.Duration
	MaxConcurrency int
	Pacing         time.Duration
}

// Deps are the collaborators of an Engine. Registry and Fetcher are
// required; the rest are optional.
type Deps struct {
	Registry   *adapter.Registry
	Fetcher    helpers.Fetcher
	Ranker     *ranker.Ranker
	Normalizer *normalize.Normalizer
	Cache      *cache.Store
	Publisher  publisher.Publisher
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
	Defaults   Defaults

	// Now and Sleep are seams for tests
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Engine is the extraction orchestrator
type Engine struct {
	registry   *adapter.Registry
	fetcher    helpers.Fetcher
	ranker     *ranker.Ranker
	normalizer *normalize.Normalizer
	cache      *cache.Store
	publisher  publisher.Publisher
	metrics    *metrics.Metrics
	log        *logger.Logger
	defaults   Defaults
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates an Engine from its collaborators
func New(deps Deps) (*Engine, error) {
	if deps.Registry == nil {
		return nil, errors.NewConfiguration("engine needs an adapter registry", nil)
	}
	if deps.Fetcher == nil {
		return nil, errors.NewConfiguration("engine needs a fetcher", nil)
	}
	if deps.Ranker == nil {
		deps.Ranker = ranker.New(ranker.DefaultWeights())
	}
	if deps.Normalizer == nil {
		deps.Normalizer = normalize.New(normalize.Limits{})
	}
	if deps.Logger == nil {
		deps.Logger = logger.ForOrchestrator()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepContext
	}
	if deps.Defaults.Timeout <= 0 {
		deps.Defaults.Timeout = 15 * time.Second
	}
	if deps.Defaults.MaxConcurrency <= 0 {
		deps.Defaults.MaxConcurrency = 4
	}
	return &Engine{
		registry:   deps.Registry,
		fetcher:    deps.Fetcher,
		ranker:     deps.Ranker,
		normalizer: deps.Normalizer,
		cache:      deps.Cache,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		log:        deps.Logger,
		defaults:   deps.Defaults,
		now:        deps.Now,
		sleep:      deps.Sleep,
	}, nil
}

// Closer releases everything NewFromConfig opened
type Closer func() error

// NewFromConfig wires the engine with the configured registry, fetcher,
// cache tiers, activity sinks and a metrics registry.
func NewFromConfig(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Engine, Closer, error) {
	registry, err := adapter.NewRegistryFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	fetcher, err := helpers.NewHTTPFetcher(helpers.FetcherOptions{
		Timeout:      cfg.FetchTimeout,
		ProxyURL:     cfg.ProxyURL,
		ProxyURLs:    cfg.ProxyURLs,
		MinBodyBytes: cfg.MinBodyBytes,
	})
	if err != nil {
		return nil, nil, err
	}
	if pool := fetcher.Proxies(); pool.Len() > 1 {
		go pool.Probe(ctx)
	}

	store, cacheCloser := cache.NewFromConfig(ctx, cfg, nil)
	store.StartSweeper(ctx)
	pub := publisher.NewFromConfig(ctx, cfg)

	engine, err := New(Deps{
		Registry:   registry,
		Fetcher:    fetcher,
		Ranker:     ranker.New(ranker.WeightsFromConfig(cfg)),
		Normalizer: normalize.New(normalize.LimitsFromConfig(cfg)),
		Cache:      store,
		Publisher:  pub,
		Metrics:    m,
		Defaults: Defaults{
			Timeout:        cfg.FetchTimeout,
			RetryDelay:     cfg.RetryDelay,
			MaxConcurrency: cfg.MaxConcurrency,
			Pacing:         cfg.BatchPacing,
		},
	})
	if err != nil {
		cacheCloser.Close()
		return nil, nil, err
	}

	closers := []io.Closer{cacheCloser}
	if pub != nil {
		closers = append(closers, pub)
	}
	return engine, func() error {
		var first error
		for _, c := range closers {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}, nil
}

// publish emits the activity event of one terminal record. Failures are
// logged only.
func (e *Engine) publish(ctx context.Context, rec *model.ExtractionRecord, started time.Time) {
	e.metrics.ObserveExtraction(rec.SourceID, string(rec.ExtractionStatus))
	if e.publisher == nil {
		return
	}
	event := publisher.ActivityEvent{
		ID:         uuid.NewString(),
		CallerID:   model.CallerFrom(ctx),
		SourceID:   rec.SourceID,
		URL:        rec.OriginURL,
		DetailURL:  rec.DetailURL,
		Status:     string(rec.ExtractionStatus),
		Error:      rec.Error,
		DurationMs: e.now().Sub(started).Milliseconds(),
		AtMs:       rec.ExtractedAtMs,
	}
	// the item's own deadline must not drop the audit record
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := e.publisher.Publish(pctx, event); err != nil {
		e.log.Warn().Err(err).Str("url", rec.OriginURL).Msg("Failed to publish activity event")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
