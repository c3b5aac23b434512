package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sjsage522/metaworker/config"
	"sjsage522/metaworker/internal/adapter"
	"sjsage522/metaworker/internal/model"
)

func target() Target {
	return Target{
		SourceID:  "javbus",
		OriginURL: "https://www.javbus.com/search/IPX-156",
		DetailURL: "https://www.javbus.com/IPX-156",
	}
}

func TestNormalizeFullRecord(t *testing.T) {
	n := New(Limits{MaxScreenshots: 2, MaxMagnetLinks: 5, MaxDownloadLinks: 5})
	raw := &adapter.RawFields{
		Title:       "  IPX-156   Summer   Story ",
		Code:        "ipx156",
		Cover:       "/pics/cover/ipx156.jpg",
		Screenshots: []string{"/s/1.jpg", "/s/1.jpg", "javascript:alert(1)", "/s/2.jpg", "/s/3.jpg"},
		Cast: []model.CastMember{
			{Name: "Aika", ProfileURL: "/star/a1"},
			{Name: " Aika "},
			{Name: ""},
			{Name: "Yui"},
		},
		Tags:        []string{"Drama", "Drama", " ", "Solo"},
		ReleaseDate: "2018/06/13",
		Duration:    "120分鐘",
		Rating:      "4.2",
		RatingScale: 5,
		Magnets: []model.MagnetLink{
			{Name: "a", URI: "magnet:?xt=urn:btih:AAA"},
			{Name: "dup", URI: "magnet:?xt=urn:btih:AAA"},
			{Name: "bad", URI: "http://example.com/x.torrent"},
		},
		Downloads: []model.DownloadLink{
			{Name: "same", URL: "/dl/ipx156.mp4"},
			{Name: "sub", URL: "https://cdn.javbus.com/ipx156.mp4", Type: "Direct"},
			{Name: "spam", URL: "https://spam.example.net/ipx156.mp4"},
			{Name: "broken", URL: "ftp://javbus.com/x"},
		},
	}

	rec := n.Normalize(raw, target())

	assert.Equal(t, "IPX-156 Summer Story", rec.Title)
	assert.Equal(t, "IPX-156", rec.Code)
	assert.Equal(t, "https://www.javbus.com/pics/cover/ipx156.jpg", rec.Cover)
	assert.Equal(t, []string{"https://www.javbus.com/s/1.jpg", "https://www.javbus.com/s/2.jpg"}, rec.Screenshots)
	require.Len(t, rec.Cast, 2)
	assert.Equal(t, "https://www.javbus.com/star/a1", rec.Cast[0].ProfileURL)
	assert.Equal(t, "Yui", rec.Cast[1].Name)
	assert.Equal(t, []string{"Drama", "Solo"}, rec.Tags)
	assert.Equal(t, "2018-06-13", rec.ReleaseDate)
	assert.Equal(t, 120, rec.DurationMinutes)
	assert.InDelta(t, 8.4, rec.Rating, 0.001)

	require.Len(t, rec.MagnetLinks, 1)
	assert.Equal(t, "magnet:?xt=urn:btih:AAA", rec.MagnetLinks[0].URI)

	require.Len(t, rec.DownloadLinks, 2)
	assert.Equal(t, "https://www.javbus.com/dl/ipx156.mp4", rec.DownloadLinks[0].URL)
	assert.Equal(t, "direct", rec.DownloadLinks[0].Type)
	assert.Equal(t, "https://cdn.javbus.com/ipx156.mp4", rec.DownloadLinks[1].URL)
	for _, d := range rec.DownloadLinks {
		assert.NotContains(t, d.URL, "spam.example.net")
	}

	assert.Equal(t, "javbus", rec.SourceID)
	assert.Equal(t, "https://www.javbus.com/IPX-156", rec.DetailURL)
}

func TestCrossHostDownloadIsDropped(t *testing.T) {
	n := New(Limits{})
	rec := n.Normalize(&adapter.RawFields{
		Title:     "x",
		Downloads: []model.DownloadLink{{Name: "elsewhere", URL: "https://files.other-host.com/a.mp4"}},
	}, target())
	assert.Empty(t, rec.DownloadLinks)
	assert.NotNil(t, rec.DownloadLinks)
}

func TestNormalizeIsTotal(t *testing.T) {
	rec := New(Limits{}).Normalize(nil, target())
	body, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	for _, key := range []string{"screenshots", "cast", "tags", "magnet_links", "download_links"} {
		assert.Equal(t, []any{}, fields[key], key)
	}
	for _, key := range []string{"title", "code", "release_date", "rating", "duration_minutes"} {
		assert.Contains(t, fields, key)
	}
}

func TestCodeFromTitle(t *testing.T) {
	rec := New(Limits{}).Normalize(&adapter.RawFields{Title: "[Uncensored] abp-001 title"}, target())
	assert.Equal(t, "ABP-001", rec.Code)
}

func TestCanonicalCodeKept(t *testing.T) {
	rec := New(Limits{}).Normalize(&adapter.RawFields{Code: "FC2-PPV-1234567", Title: "IPX-156"}, target())
	assert.Equal(t, "FC2-PPV-1234567", rec.Code)
}

func TestCoverFromCDNHostIsKept(t *testing.T) {
	rec := New(Limits{}).Normalize(&adapter.RawFields{
		Title: "IPX-156",
		Cover: "https://pics.dmm.co.jp/digital/video/ipx00156/ipx00156pl.jpg",
	}, target())
	assert.Equal(t, "https://pics.dmm.co.jp/digital/video/ipx00156/ipx00156pl.jpg", rec.Cover)
}

func TestDate(t *testing.T) {
	cases := map[string]string{
		"2018-06-13":             "2018-06-13",
		"2018/6/3":               "2018-06-03",
		"2018.06.13":             "2018-06-13",
		"20180613":               "2018-06-13",
		"2018年6月13日":             "2018-06-13",
		"Jun 13, 2018":           "2018-06-13",
		"Released 2018-06-13 JP": "2018-06-13",
		"2018-06-13 10:20":       "2018-06-13",
		"soon":                   "",
		"":                       "",
		"2018-13-45":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Date(in), in)
	}
}

func TestMinutes(t *testing.T) {
	assert.Equal(t, 120, Minutes("120分鐘"))
	assert.Equal(t, 95, Minutes("95 min"))
	assert.Equal(t, 118, Minutes("01:58:30"))
	assert.Equal(t, 90, Minutes("1.5 hours"))
	assert.Equal(t, 0, Minutes("unknown"))
}

func TestRatingIsClamped(t *testing.T) {
	assert.Equal(t, 0.0, Rating("", 0))
	assert.Equal(t, 0.0, Rating("n/a", 0))
	assert.Equal(t, 10.0, Rating("37", 0))
	assert.InDelta(t, 8.1, Rating("(8.10)", 10), 0.001)
	assert.InDelta(t, 9.0, Rating("4.5", 5), 0.001)
	assert.InDelta(t, 7.5, Rating("75", 100), 0.001)
	assert.Equal(t, 0.0, Rating("-3", 10))
	assert.Equal(t, 0.0, Rating(" -0.5 ", 5))
}

func TestLimitsFromConfig(t *testing.T) {
	l := LimitsFromConfig(&config.Config{MaxScreenshots: 1, MaxMagnetLinks: 2, MaxDownloadLinks: 3})
	assert.Equal(t, Limits{1, 2, 3}, l)
}
