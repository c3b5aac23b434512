package adapter

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/code"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/pkg/errors"
)

const (
	provJavdbMovieList = "javdb:movie-list"
	provJavdbVideoPath = "javdb:video-path"
)

var javdbRatingRE = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// javdbConfig: detail pages are /v/{token}; the code is not in the URL
func javdbConfig(baseURL string) SiteConfig {
	return SiteConfig{
		SourceID:      "javdb",
		DisplayName:   "JavDB",
		BaseURL:       baseURL,
		HostKeywords:  []string{"javdb"},
		Capabilities:  []string{CapDetail, CapListing, CapCast, CapScreenshots, CapMagnets, CapRating},
		DetailPattern: regexp.MustCompile(`^/v/[A-Za-z0-9]+/?$`),
		Strategies: []LinkStrategy{
			{
				Provenance:    provJavdbMovieList,
				Selector:      "div.movie-list div.item a.box",
				TitleSelector: "div.video-title",
				CodeSelector:  "div.video-title strong",
				BaseScore:     60,
			},
			{Provenance: provJavdbVideoPath, Selector: "a[href^='/v/']", BaseScore: 50},
		},
		Parse: parseJavdb,
	}
}

func parseJavdb(doc *DetailDocument, pctx ParseContext) (*RawFields, error) {
	q, err := doc.Query()
	if err != nil {
		return nil, err
	}
	panel := q.Find("nav.movie-panel-info .panel-block")
	if panel.Length() == 0 {
		return nil, errors.NewAdapter("javdb", "no movie panel (login wall or non-detail page)", nil)
	}

	raw := &RawFields{RatingScale: 5}
	raw.Title = normSpace(q.Find("h2.title span.origin-title").First().Text())
	if raw.Title == "" {
		raw.Title = normSpace(q.Find("h2.title strong.current-title").First().Text())
	}

	panel.Each(func(_ int, s *goquery.Selection) {
		value := s.Find("span.value").First()
		switch h := normHeader(s.Find("strong").First().Text()); h {
		case "番號", "番号", "ID":
			raw.Code = code.Normalize(value.Text())
		case "日期", "Date", "Released Date":
			raw.ReleaseDate = normSpace(value.Text())
		case "時長", "时长", "Length", "Duration":
			raw.Duration = normSpace(value.Text())
		case "導演", "导演", "Director":
			raw.Director = normSpace(value.Find("a").First().Text())
		case "片商", "Maker", "Studio":
			raw.Studio = normSpace(value.Find("a").First().Text())
		case "發行", "发行", "Publisher", "Label":
			raw.Label = normSpace(value.Find("a").First().Text())
		case "系列", "Series":
			raw.Series = normSpace(value.Find("a").First().Text())
		case "評分", "评分", "Rating":
			raw.Rating = javdbRatingRE.FindString(value.Text())
		case "演員", "演员", "Actor(s)", "Actors", "Actor":
			raw.Cast = castFromLinks(value.Find("a"), doc.URL)
		case "類別", "类别", "Tags", "Tag", "Genre":
			raw.Tags = linkTexts(value.Find("a"))
		}
	})

	if src, ok := q.Find(".column-video-cover img.video-cover").First().Attr("src"); ok {
		raw.Cover = helpers.ResolveURL(doc.URL, src)
	}
	if raw.Cover == "" {
		raw.Cover = doc.Meta("og:image")
	}
	q.Find("div.preview-images a.tile-item").Each(func(_ int, s *goquery.Selection) {
		if href := s.AttrOr("href", ""); href != "" && !strings.HasPrefix(href, "#") {
			raw.Screenshots = append(raw.Screenshots, helpers.ResolveURL(doc.URL, href))
		}
	})

	q.Find("#magnets-content .item").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a[href^='magnet:']").First()
		if a.Length() == 0 {
			return
		}
		m := model.MagnetLink{
			Name: normSpace(a.Find("span.name").First().Text()),
			URI:  strings.TrimSpace(a.AttrOr("href", "")),
			Size: normSpace(a.Find("span.meta").First().Text()),
		}
		if m.Name == "" {
			m.Name = magnetDisplayName(m.URI)
		}
		raw.Magnets = append(raw.Magnets, m)
	})

	if raw.Code == "" {
		raw.Code = code.Normalize(q.Find("a.copy-to-clipboard").First().AttrOr("data-clipboard-text", ""))
	}
	return raw, nil
}
