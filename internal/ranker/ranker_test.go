package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sjsage522/metaworker/config"
	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/adapter"
)

func generic(t *testing.T) adapter.SiteAdapter {
	t.Helper()
	g, err := adapter.NewGenericAdapter(100)
	require.NoError(t, err)
	return g
}

func TestSingleCodeAnchorScoresAtLeast90(t *testing.T) {
	g := generic(t)
	page := adapter.ListingPage{
		OriginURL: "https://example.com/results?kw=IPX-156",
		Keyword:   "IPX-156",
		Markup:    `<html><body><a href="/IPX-156"></a></body></html>`,
	}
	candidates := g.ExtractCandidateLinks(page)

	best, ok := New(DefaultWeights()).Best(g, candidates, page.OriginURL, Query{Keyword: page.Keyword})
	require.True(t, ok)
	assert.Equal(t, "https://example.com/IPX-156", best.URL)
	assert.Equal(t, "IPX-156", best.Code)
	assert.GreaterOrEqual(t, best.Score, 90.0)
	assert.LessOrEqual(t, best.Score, 100.0)
}

func TestRankFiltersAndOrders(t *testing.T) {
	g := generic(t)
	listing := "https://www.example.com/search/IPX-156"
	candidates := []adapter.CandidateLink{
		{URL: "https://evil.com/IPX-156", Code: "IPX-156", Score: 50},
		{URL: "https://www.example.com/search/IPX-156/", Code: "IPX-156", Score: 50},
		{URL: "https://www.example.com/tag/IPX-156", Code: "IPX-156", Score: 50},
		{URL: "https://www.example.com/about", Score: 50},
		{URL: "::not a url", Score: 50},
		{URL: "https://cdn.example.com/ABP-001", Code: "ABP-001", Title: "other", Score: 50},
		{URL: "https://www.example.com/IPX-156", Code: "IPX-156", Title: "IPX-156 exact", Score: 50},
		{URL: "https://www.example.com/IPX-156?ref=dup", Code: "IPX-156", Score: 50},
		{URL: "https://www.example.com/watch/ipx-156-hd", Title: "something", Score: 50},
	}

	ranked := New(DefaultWeights()).Rank(g, candidates, listing, Query{Keyword: "IPX-156"})
	require.Len(t, ranked, 3)
	assert.Equal(t, "https://www.example.com/IPX-156", ranked[0].URL)
	assert.Equal(t, "https://www.example.com/watch/ipx-156-hd", ranked[1].URL)
	assert.Equal(t, "https://cdn.example.com/ABP-001", ranked[2].URL)

	listingHost := helpers.Host(listing)
	for _, c := range ranked {
		assert.True(t, helpers.SameOrSubHost(helpers.Host(c.URL), listingHost), c.URL)
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 100.0)
	}
}

func TestRankWithoutSearchContext(t *testing.T) {
	g := generic(t)
	ranked := New(DefaultWeights()).Rank(g, []adapter.CandidateLink{
		{URL: "https://example.com/AAA-001", Code: "AAA-001", Score: 45, Provenance: "generic:container"},
	}, "https://example.com/", Query{})
	require.Len(t, ranked, 1)
	assert.Equal(t, 45.0, ranked[0].Score)

	assert.Empty(t, New(DefaultWeights()).Rank(g, nil, "https://example.com/", Query{}))
	assert.Empty(t, New(DefaultWeights()).Rank(g, []adapter.CandidateLink{{URL: "https://example.com/AAA-001"}}, "bad", Query{}))
}

func TestTitleSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, similarity(tokens("Summer Beach Story"), tokens("summer story beach")), 0.001)
	assert.InDelta(t, 0.5, similarity(tokens("Summer Night"), tokens("summer beach")), 0.001)
	assert.Equal(t, 0.0, similarity(tokens(""), tokens("x")))
}

func TestWeightsFromConfig(t *testing.T) {
	w := WeightsFromConfig(&config.Config{RankExactCode: 1, RankSubstringCode: 2, RankTitleSimilarity: 3, RankProvenanceBonus: 4})
	assert.Equal(t, Weights{1, 2, 3, 4}, w)
}
