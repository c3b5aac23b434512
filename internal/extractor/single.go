package extractor

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/url"
	"strings"
	"time"

	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/adapter"
	"sjsage522/metaworker/internal/code"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/internal/normalize"
	"sjsage522/metaworker/internal/ranker"
	"sjsage522/metaworker/pkg/errors"
	"sjsage522/metaworker/services/cache"
)

type state int

const (
	stateInit state = iota
	stateDetectSource
	stateCacheLookup
	stateResolveDetailURL
	stateFetchDetail
	stateParse
	stateNormalize
	stateCacheStore
	stateRetry
	stateDoneCached
	stateDoneSuccess
	stateDoneError
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "INIT"
	case stateDetectSource:
		return "DETECT_SOURCE"
	case stateCacheLookup:
		return "CACHE_LOOKUP"
	case stateResolveDetailURL:
		return "RESOLVE_DETAIL_URL"
	case stateFetchDetail:
		return "FETCH_DETAIL"
	case stateParse:
		return "PARSE"
	case stateNormalize:
		return "NORMALIZE"
	case stateCacheStore:
		return "CACHE_STORE"
	case stateRetry:
		return "RETRY"
	case stateDoneCached:
		return "DONE_CACHED"
	case stateDoneSuccess:
		return "DONE_SUCCESS"
	case stateDoneError:
		return "DONE_ERROR"
	}
	return "UNKNOWN"
}

func (s state) terminal() bool {
	return s == stateDoneCached || s == stateDoneSuccess || s == stateDoneError
}

// run carries one item through the state machine
type run struct {
	e    *Engine
	item model.Item
	opts model.Options

	retry    bool
	failedAt state

	sourceID  string
	adapter   adapter.SiteAdapter
	cacheKey  string
	detailURL string
	markup    string
	raw       *adapter.RawFields
	record    model.ExtractionRecord
	err       error
}

// searchKeys are listing query parameters that carry the user's search term
var searchKeys = []string{"q", "kw", "keyword", "k", "search", "s", "query", "wd"}

// ExtractSingle runs the full pipeline for one item. It never fails: errors
// become a record with an error or timeout status.
func (e *Engine) ExtractSingle(ctx context.Context, item model.Item, opts model.Options) model.ExtractionRecord {
	started := e.now()
	if opts.Timeout <= 0 {
		opts.Timeout = e.defaults.Timeout
	}
	r := &run{e: e, item: item, opts: opts, retry: opts.EnableRetry}

	st := stateInit
	for !st.terminal() {
		next := r.step(ctx, st)
		if next != st {
			e.log.Debug().Str("item", item.ID).Str("from", st.String()).Str("to", next.String()).Msg("Extraction transition")
		}
		st = next
	}

	rec := r.finish(st)
	e.publish(ctx, &rec, started)
	return rec
}

func (r *run) step(ctx context.Context, st state) state {
	switch st {
	case stateInit:
		if _, ok := helpers.ParseHTTPURL(r.item.URL); !ok {
			return r.fail(st, errors.NewValidation("extract", "item url is not a well-formed http(s) url: "+r.item.URL))
		}
		return stateDetectSource

	case stateDetectSource:
		r.sourceID = r.e.registry.DetectSource(r.item.URL, r.item.SourceHint)
		r.adapter = r.e.registry.Get(r.sourceID)
		r.sourceID = r.adapter.SourceID()
		return stateCacheLookup

	case stateCacheLookup:
		if !r.opts.EnableCache || r.e.cache == nil {
			return stateResolveDetailURL
		}
		r.cacheKey = cache.KeyFor(r.item.URL)
		payload, ok := r.e.cache.Get(ctx, r.cacheKey)
		r.e.metrics.ObserveCacheLookup(ok)
		if !ok {
			return stateResolveDetailURL
		}
		var rec model.ExtractionRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			r.e.log.Warn().Err(errors.NewCache(r.sourceID, "decode cached record", err)).Msg("Ignoring cached record")
			return stateResolveDetailURL
		}
		r.record = rec
		return stateDoneCached

	case stateResolveDetailURL:
		return r.resolve(ctx)

	case stateFetchDetail:
		if r.markup != "" {
			return stateParse
		}
		markup, err := r.fetch(ctx, "detail", r.detailURL)
		if err != nil {
			return r.fail(st, err)
		}
		r.markup = markup
		return stateParse

	case stateParse:
		doc := adapter.NewDetailDocument(r.markup, r.detailURL)
		raw, err := r.adapter.ParseDetail(doc, adapter.ParseContext{
			DetailURL: r.detailURL,
			OriginURL: r.item.URL,
			Title:     r.item.Title,
			Code:      r.wantCode(),
		})
		if err != nil {
			if errors.TypeOf(err) == "" {
				err = errors.NewAdapter(r.sourceID, "parse detail page", err)
			}
			return r.fail(st, err)
		}
		r.raw = raw
		return stateNormalize

	case stateNormalize:
		r.record = r.e.normalizer.Normalize(r.raw, normalize.Target{
			SourceID:  r.sourceID,
			OriginURL: r.item.URL,
			DetailURL: r.detailURL,
		})
		r.record.ID = r.item.ID
		if r.record.Title == "" && r.record.Code == "" {
			r.record.Title = r.item.Title
			r.record.ExtractionStatus = model.StatusPartial
		} else {
			r.record.ExtractionStatus = model.StatusSuccess
		}
		return stateCacheStore

	case stateCacheStore:
		if r.opts.EnableCache && r.e.cache != nil && r.record.ExtractionStatus == model.StatusSuccess {
			payload, err := json.Marshal(r.record)
			if err != nil {
				r.e.log.Warn().Err(errors.NewCache(r.sourceID, "encode record", err)).Msg("Skipping cache store")
			} else {
				r.e.cache.Set(ctx, cache.KeyFor(r.item.URL), r.item.URL, payload, 0)
			}
		}
		return stateDoneSuccess

	case stateRetry:
		if err := r.e.sleep(ctx, r.e.defaults.RetryDelay); err != nil {
			r.err = r.classify(err)
			return stateDoneError
		}
		r.markup = ""
		r.raw = nil
		return stateResolveDetailURL
	}
	return stateDoneError
}

// resolve picks the detail URL, fetching and ranking the listing page when
// the item's URL is not itself a detail page.
func (r *run) resolve(ctx context.Context) state {
	if r.adapter.IsDetailURL(r.item.URL) {
		r.detailURL = r.item.URL
		return stateFetchDetail
	}

	listing, err := r.fetch(ctx, "listing", r.item.URL)
	if err != nil {
		return r.fail(stateResolveDetailURL, err)
	}

	candidates := r.adapter.ExtractCandidateLinks(adapter.ListingPage{
		Markup:    listing,
		OriginURL: r.item.URL,
		Keyword:   r.keyword(),
	})
	ranked := r.e.ranker.Rank(r.adapter, candidates, r.item.URL, ranker.Query{
		Keyword: r.keyword(),
		Code:    r.wantCode(),
		Title:   r.item.Title,
	})
	r.e.metrics.ObserveCandidates(r.sourceID, len(ranked))

	if len(ranked) == 0 {
		r.e.log.Info().
			Err(errors.NewNoCandidates(r.sourceID, r.item.URL)).
			Msg("Treating listing page as the detail page")
		r.detailURL = r.item.URL
		r.markup = listing
		return stateFetchDetail
	}

	best := ranked[0]
	r.e.log.Debug().
		Str("source", r.sourceID).
		Str("detail", best.URL).
		Float64("score", best.Score).
		Str("provenance", best.Provenance).
		Msg("Resolved detail url")
	r.detailURL = best.URL
	return stateFetchDetail
}

func (r *run) fetch(ctx context.Context, stage, pageURL string) (string, error) {
	fctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	markup, err := r.e.fetcher.Fetch(fctx, pageURL)
	r.e.metrics.ObserveFetch(stage, time.Since(start))
	if err != nil {
		if stderrors.Is(fctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", errors.NewTimeout(pageURL, r.opts.Timeout, err)
		}
		return "", r.classify(err)
	}
	return markup, nil
}

// classify gives untyped errors a kind
func (r *run) classify(err error) error {
	if errors.TypeOf(err) != "" {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeout(r.item.URL, r.opts.Timeout, err)
	}
	return errors.NewNetwork(r.item.URL, "fetch failed", err)
}

// fail retries once from the retryable stages and otherwise ends the run
func (r *run) fail(at state, err error) state {
	r.err = err
	r.failedAt = at
	retryable := at == stateResolveDetailURL || at == stateFetchDetail || at == stateParse
	if retryable && r.retry && errors.IsRetryable(err) {
		r.retry = false
		r.e.log.Warn().Err(err).Str("state", at.String()).Str("url", r.item.URL).Msg("Retrying extraction")
		return stateRetry
	}
	return stateDoneError
}

// finish builds the terminal record and stamps the request's identity on it
func (r *run) finish(st state) model.ExtractionRecord {
	now := r.e.now().UnixMilli()
	switch st {
	case stateDoneCached:
		rec := r.record
		rec.ID = r.item.ID
		rec.OriginURL = r.item.URL
		if rec.Title == "" {
			rec.Title = r.item.Title
		}
		if rec.SourceID == "" {
			rec.SourceID = r.sourceID
		}
		rec.ExtractionStatus = model.StatusCached
		rec.Error = ""
		rec.ExtractedAtMs = now
		return ensureLists(rec)

	case stateDoneSuccess:
		rec := r.record
		rec.ExtractedAtMs = now
		return rec
	}

	rec := normalize.Empty()
	rec.ID = r.item.ID
	rec.Title = r.item.Title
	rec.OriginURL = r.item.URL
	rec.DetailURL = r.detailURL
	if rec.DetailURL == "" {
		rec.DetailURL = r.item.URL
	}
	rec.SourceID = r.sourceID
	if rec.SourceID == "" {
		rec.SourceID = adapter.GenericSourceID
	}
	rec.ExtractionStatus = model.StatusError
	if errors.Is(r.err, errors.ErrorTypeTimeout) {
		rec.ExtractionStatus = model.StatusTimeout
	}
	if r.err != nil {
		rec.Error = r.err.Error()
	}
	rec.ExtractedAtMs = now
	r.e.log.Warn().Err(r.err).Str("item", r.item.ID).Str("state", r.failedAt.String()).Msg("Extraction failed")
	return rec
}

// wantCode is the serial code the caller is looking for, if any
func (r *run) wantCode() string {
	if c := code.Find(r.item.Title); c != "" {
		return c
	}
	return code.Find(r.keyword())
}

// keyword is the search term of a listing URL, else the item title
func (r *run) keyword() string {
	if u, err := url.Parse(r.item.URL); err == nil {
		q := u.Query()
		for _, k := range searchKeys {
			if v := strings.TrimSpace(q.Get(k)); v != "" {
				return v
			}
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if last, err := url.PathUnescape(segments[len(segments)-1]); err == nil && code.Find(last) != "" {
			return last
		}
	}
	return r.item.Title
}

// ensureLists repairs records decoded from older cache entries
func ensureLists(rec model.ExtractionRecord) model.ExtractionRecord {
	if rec.Screenshots == nil {
		rec.Screenshots = []string{}
	}
	if rec.Cast == nil {
		rec.Cast = []model.CastMember{}
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if rec.MagnetLinks == nil {
		rec.MagnetLinks = []model.MagnetLink{}
	}
	if rec.DownloadLinks == nil {
		rec.DownloadLinks = []model.DownloadLink{}
	}
	return rec
}
