// Package ranker filters and scores candidate detail links found on a
// listing page.
package ranker

import (
	"sort"
	"strings"
	"unicode"

	"sjsage522/metaworker/config"
	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/adapter"
	"sjsage522/metaworker/internal/code"
)

// Weights are the score contributions added on top of an adapter's base score
type Weights struct {
	ExactCode       float64
	SubstringCode   float64
	TitleSimilarity float64
	ProvenanceBonus float64
}

// DefaultWeights returns the starting calibration
func DefaultWeights() Weights {
	return Weights{ExactCode: 40, SubstringCode: 25, TitleSimilarity: 30, ProvenanceBonus: 12}
}

// WeightsFromConfig reads the ranking weights from the configuration
func WeightsFromConfig(cfg *config.Config) Weights {
	return Weights{
		ExactCode:       cfg.RankExactCode,
		SubstringCode:   cfg.RankSubstringCode,
		TitleSimilarity: cfg.RankTitleSimilarity,
		ProvenanceBonus: cfg.RankProvenanceBonus,
	}
}

// Query is the search context a listing page was fetched for
type Query struct {
	Keyword string
	Code    string
	Title   string
}

// Ranker orders candidate links by how likely they are the wanted detail page
type Ranker struct {
	weights Weights
}

func New(w Weights) *Ranker {
	return &Ranker{weights: w}
}

// Rank filters candidates and returns the survivors, best first
func (r *Ranker) Rank(a adapter.SiteAdapter, candidates []adapter.CandidateLink, listingURL string, q Query) []adapter.CandidateLink {
	listingHost := helpers.Host(listingURL)
	if listingHost == "" || len(candidates) == 0 {
		return nil
	}
	listingKey := helpers.CompareKey(listingURL)

	wantCode := code.Normalize(q.Code)
	if wantCode == "" {
		wantCode = code.Find(q.Keyword)
	}
	if wantCode == "" {
		wantCode = code.Find(q.Title)
	}
	contextTitle := q.Title
	if strings.TrimSpace(contextTitle) == "" {
		contextTitle = q.Keyword
	}
	contextTokens := tokens(contextTitle)

	seen := make(map[string]bool, len(candidates))
	out := make([]adapter.CandidateLink, 0, len(candidates))
	for _, c := range candidates {
		u, ok := helpers.ParseHTTPURL(c.URL)
		if !ok {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if !helpers.SameOrSubHost(host, listingHost) {
			continue
		}
		key := helpers.CompareKey(c.URL)
		if key == listingKey {
			continue
		}
		if adapter.IsExcluded(c.URL) || adapter.IsSpamHost(host) {
			continue
		}
		if !a.IsDetailURL(c.URL) {
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		c.Score = r.score(c, wantCode, contextTokens)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Best returns the top-ranked candidate, if any survived
func (r *Ranker) Best(a adapter.SiteAdapter, candidates []adapter.CandidateLink, listingURL string, q Query) (adapter.CandidateLink, bool) {
	ranked := r.Rank(a, candidates, listingURL, q)
	if len(ranked) == 0 {
		return adapter.CandidateLink{}, false
	}
	return ranked[0], true
}

func (r *Ranker) score(c adapter.CandidateLink, wantCode string, contextTokens map[string]bool) float64 {
	s := c.Score
	if wantCode != "" {
		switch {
		case c.Code != "" && code.Equal(c.Code, wantCode):
			s += r.weights.ExactCode
		case code.Contains(c.URL, wantCode) || code.Contains(c.Title, wantCode):
			s += r.weights.SubstringCode
		}
	}
	s += r.weights.TitleSimilarity * similarity(tokens(c.Title), contextTokens)
	if adapter.IsHighConfidence(c.Provenance) {
		s += r.weights.ProvenanceBonus
	}
	return clamp(s, 0, 100)
}

// similarity is the share of context tokens that also appear in title
func similarity(title, context map[string]bool) float64 {
	if len(title) == 0 || len(context) == 0 {
		return 0
	}
	shared := 0
	for t := range context {
		if title[t] {
			shared++
		}
	}
	return float64(shared) / float64(len(context))
}

func tokens(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[f] = true
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
