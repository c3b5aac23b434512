package adapter

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/code"
	"sjsage522/metaworker/pkg/errors"
)

const (
	provJavlibraryVideos = "javlibrary:videos"
	provJavlibraryQuery  = "javlibrary:v-query"
)

func javlibraryConfig(baseURL string) SiteConfig {
	return SiteConfig{
		SourceID:      "javlibrary",
		DisplayName:   "JAVLibrary",
		BaseURL:       baseURL,
		HostKeywords:  []string{"javlibrary"},
		Capabilities:  []string{CapDetail, CapListing, CapCast, CapScreenshots, CapRating},
		DetailPattern: regexp.MustCompile(`(?i)^/(?:[a-z]{2}/)?(?:\?|.*[?&])v=jav[a-z0-9]+`),
		Strategies: []LinkStrategy{
			{Provenance: provJavlibraryVideos, Selector: "div.videos div.video a", CodeSelector: "div.id", BaseScore: 60},
			{Provenance: provJavlibraryQuery, Selector: "a[href*='?v=jav']", BaseScore: 50},
		},
		Parse: parseJavlibrary,
	}
}

func parseJavlibrary(doc *DetailDocument, pctx ParseContext) (*RawFields, error) {
	q, err := doc.Query()
	if err != nil {
		return nil, err
	}
	if q.Find("#video_id").Length() == 0 {
		return nil, errors.NewAdapter("javlibrary", "no video id block (challenge or non-detail page)", nil)
	}

	text := func(sel string) string { return normSpace(q.Find(sel).First().Text()) }

	raw := &RawFields{
		Code:        code.Normalize(text("#video_id td.text")),
		ReleaseDate: text("#video_date td.text"),
		Duration:    text("#video_length span.text"),
		Director:    text("#video_director span.director a"),
		Studio:      text("#video_maker span.maker a"),
		Label:       text("#video_label span.label a"),
		Rating:      strings.Trim(text("#video_review span.score"), "()"),
		RatingScale: 10,
		Tags:        linkTexts(q.Find("#video_genres span.genre a")),
		Cast:        castFromLinks(q.Find("#video_cast span.star a"), doc.URL),
	}

	raw.Title = text("#video_title h3 a")
	if raw.Title == "" {
		raw.Title = text("#video_title h3")
	}
	if raw.Code != "" && strings.HasPrefix(strings.ToUpper(raw.Title), raw.Code) {
		raw.Title = strings.TrimSpace(raw.Title[len(raw.Code):])
	}

	if src, ok := q.Find("#video_jacket_img").First().Attr("src"); ok {
		raw.Cover = helpers.ResolveURL(doc.URL, src)
	}
	q.Find("div.previewthumbs a, div.previewthumbs img").Each(func(_ int, s *goquery.Selection) {
		ref := s.AttrOr("href", s.AttrOr("src", ""))
		if ref != "" && !strings.HasPrefix(ref, "#") {
			raw.Screenshots = append(raw.Screenshots, helpers.ResolveURL(doc.URL, ref))
		}
	})
	return raw, nil
}
