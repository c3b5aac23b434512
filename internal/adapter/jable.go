package adapter

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/code"
	"sjsage522/metaworker/pkg/errors"
)

const (
	provJableVideoBox  = "jable:video-img-box"
	provJableVideoPath = "jable:videos-path"
)

func jableConfig(baseURL string) SiteConfig {
	return SiteConfig{
		SourceID:      "jable",
		DisplayName:   "Jable",
		BaseURL:       baseURL,
		HostKeywords:  []string{"jable"},
		Capabilities:  []string{CapDetail, CapListing, CapCast, CapDownloads},
		DetailPattern: regexp.MustCompile(`(?i)^/videos/[a-z0-9]+(?:-[a-z0-9]+)+/?$`),
		Strategies: []LinkStrategy{
			{Provenance: provJableVideoBox, Selector: "div.video-img-box h6.title a", BaseScore: 60},
			{Provenance: provJableVideoPath, Selector: "a[href*='/videos/']", BaseScore: 45},
		},
		Parse: parseJable,
	}
}

func parseJable(doc *DetailDocument, pctx ParseContext) (*RawFields, error) {
	q, err := doc.Query()
	if err != nil {
		return nil, err
	}
	header := q.Find("div.video-info div.header-left").First()
	if header.Length() == 0 {
		header = q.Find("div.header-left").First()
	}
	if header.Length() == 0 {
		return nil, errors.NewAdapter("jable", "no video header (non-detail page)", nil)
	}

	raw := &RawFields{
		Title:       normSpace(header.Find("h4").First().Text()),
		Cover:       doc.Meta("og:image"),
		Description: doc.Meta("og:description"),
		Tags:        linkTexts(q.Find("h5.tags a")),
		Downloads:   streamLinks(doc.Markup()),
	}
	if raw.Title == "" {
		raw.Title = normSpace(doc.Meta("og:title"))
	}
	raw.Code = code.Find(raw.Title)
	if raw.Code == "" {
		raw.Code = code.Find(doc.URL)
	}

	header.Find("h6 span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if d := dateRE.FindString(s.Text()); d != "" {
			raw.ReleaseDate = d
			return false
		}
		return true
	})

	q.Find("div.models a.model").Each(func(_ int, a *goquery.Selection) {
		name := normSpace(a.Find("span").First().AttrOr("title", ""))
		if name == "" {
			name = normSpace(a.Find("img").First().AttrOr("title", ""))
		}
		if name == "" {
			name = normSpace(a.AttrOr("title", a.Text()))
		}
		if name == "" {
			return
		}
		raw.Cast = append(raw.Cast, castMember(name, helpers.ResolveURL(doc.URL, a.AttrOr("href", "")), a.Find("img").First().AttrOr("src", "")))
	})

	for i := range raw.Downloads {
		raw.Downloads[i].Quality = "HD"
	}
	return raw, nil
}
