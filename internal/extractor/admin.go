package extractor

import (
	"context"
	"fmt"

	"sjsage522/metaworker/internal/adapter"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/pkg/errors"
	"sjsage522/metaworker/services/cache"
)

// ListSupportedSources describes every registered source, generic last
func (e *Engine) ListSupportedSources() []model.SourceInfo {
	ids := e.registry.SourceIDs()
	out := make([]model.SourceInfo, 0, len(ids))
	for _, id := range ids {
		a := e.registry.Get(id)
		out = append(out, model.SourceInfo{
			SourceID:     id,
			DisplayName:  a.DisplayName(),
			Capabilities: append([]string{}, a.Capabilities()...),
		})
	}
	return out
}

// ValidateAdapter builds a fresh instance of sourceID and checks its contract
// against empty input.
func (e *Engine) ValidateAdapter(sourceID string) model.ValidationResult {
	res := model.ValidationResult{Errors: []string{}, Capabilities: []string{}}
	if !e.registry.Known(sourceID) {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown source %q", sourceID))
		return res
	}
	a, err := e.registry.Construct(sourceID)
	if err != nil {
		res.Errors = append(res.Errors, "construction failed: "+err.Error())
		return res
	}
	if a == nil {
		res.Errors = append(res.Errors, "constructor returned no adapter")
		return res
	}

	res.Capabilities = append(res.Capabilities, a.Capabilities()...)
	if a.SourceID() == "" {
		res.Errors = append(res.Errors, "empty source id")
	}
	if a.DisplayName() == "" {
		res.Errors = append(res.Errors, "empty display name")
	}
	if len(res.Capabilities) == 0 {
		res.Errors = append(res.Errors, "no capabilities declared")
	}
	res.Errors = append(res.Errors, probe(a)...)
	res.IsValid = len(res.Errors) == 0
	return res
}

// probe exercises the adapter on empty input, which must neither panic nor
// produce output.
func probe(a adapter.SiteAdapter) (problems []string) {
	defer func() {
		if p := recover(); p != nil {
			problems = append(problems, fmt.Sprintf("adapter panicked: %v", p))
		}
	}()
	if a.IsDetailURL("") {
		problems = append(problems, "empty url classified as detail page")
	}
	if links := a.ExtractCandidateLinks(adapter.ListingPage{}); len(links) > 0 {
		problems = append(problems, "candidate links found on an empty listing")
	}
	raw, err := a.ParseDetail(adapter.NewDetailDocument("", ""), adapter.ParseContext{})
	if err == nil && raw != nil && (raw.Title != "" || raw.Code != "") {
		problems = append(problems, "fields parsed from an empty detail page")
	}
	if err != nil && errors.TypeOf(err) == "" {
		problems = append(problems, "parse error is not typed: "+err.Error())
	}
	return problems
}

// ReloadAdapter drops the live instance of sourceID
func (e *Engine) ReloadAdapter(sourceID string) bool {
	return e.registry.Reload(sourceID)
}

// CacheStats summarises the cache, or reports an empty memory cache when
// caching is not configured.
func (e *Engine) CacheStats(ctx context.Context) model.CacheStats {
	if e.cache == nil {
		return model.CacheStats{Backend: "none"}
	}
	return e.cache.Stats(ctx)
}

func (e *Engine) ClearCache(ctx context.Context) {
	if e.cache != nil {
		e.cache.Clear(ctx)
	}
}

// DeleteCacheEntry removes the entry cached for rawURL
func (e *Engine) DeleteCacheEntry(ctx context.Context, rawURL string) bool {
	if e.cache == nil {
		return false
	}
	return e.cache.Delete(ctx, cache.KeyFor(rawURL))
}

func (e *Engine) ExportCache(ctx context.Context) *cache.Snapshot {
	if e.cache == nil {
		return &cache.Snapshot{Version: cache.SnapshotVersion, Entries: []cache.Entry{}}
	}
	return e.cache.Export(ctx)
}

func (e *Engine) ImportCache(ctx context.Context, snap *cache.Snapshot) (int, error) {
	if e.cache == nil {
		return 0, errors.NewConfiguration("cache is not configured", nil)
	}
	return e.cache.Import(ctx, snap)
}
