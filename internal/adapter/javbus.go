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
	provJavbusMovieBox  = "javbus:movie-box"
	provJavbusWaterfall = "javbus:waterfall"
)

// javbusConfig: detail pages live at /{CODE} or /{lang}/{CODE}
func javbusConfig(baseURL string) SiteConfig {
	return SiteConfig{
		SourceID:     "javbus",
		DisplayName:  "JavBus",
		BaseURL:      baseURL,
		HostKeywords: []string{"javbus", "buscdn", "seejav"},
		Capabilities: []string{CapDetail, CapListing, CapCast, CapScreenshots, CapMagnets},
		DetailPattern: regexp.MustCompile(
			`(?i)^/(?:(?:en|ja|ko|zh)/)?(?:[a-z]{2,6}-\d{2,5}|fc2-ppv-\d{5,8}|\d{6}[-_]\d{2,3})/?$`),
		Strategies: []LinkStrategy{
			{Provenance: provJavbusMovieBox, Selector: "a.movie-box", CodeSelector: "date", BaseScore: 60},
			{Provenance: provJavbusWaterfall, Selector: "#waterfall a", BaseScore: 50},
		},
		Parse: parseJavbus,
	}
}

func parseJavbus(doc *DetailDocument, pctx ParseContext) (*RawFields, error) {
	q, err := doc.Query()
	if err != nil {
		return nil, err
	}
	if q.Find("div.movie").Length() == 0 {
		return nil, errors.NewAdapter("javbus", "no movie panel (verification or non-detail page)", nil)
	}

	rows := q.Find("div.movie div.info p")
	info := func(headers ...string) string {
		return rowValue(findRow(rows, "span.header", headers...), "span.header")
	}

	raw := &RawFields{
		Code:        code.Normalize(info("識別碼", "识别码", "ID", "品番")),
		ReleaseDate: info("發行日期", "发行日期", "Release Date", "発売日"),
		Duration:    info("長度", "长度", "Length", "収録時間"),
		Director:    info("導演", "导演", "Director", "監督"),
		Studio:      info("製作商", "制作商", "Studio", "Maker", "メーカー"),
		Label:       info("發行商", "发行商", "Label", "レーベル"),
		Series:      info("系列", "Series", "シリーズ"),
		Description: doc.Meta("description"),
	}

	raw.Title = normSpace(q.Find("div.container h3").First().Text())
	if raw.Title == "" {
		raw.Title = normSpace(q.Find("h3").First().Text())
	}
	if raw.Code != "" && strings.HasPrefix(strings.ToUpper(raw.Title), raw.Code) {
		raw.Title = strings.TrimSpace(raw.Title[len(raw.Code):])
	}

	if href, ok := q.Find("a.bigImage").First().Attr("href"); ok {
		raw.Cover = helpers.ResolveURL(doc.URL, href)
	}
	q.Find("#sample-waterfall a.sample-box").Each(func(_ int, s *goquery.Selection) {
		if href := s.AttrOr("href", ""); href != "" {
			raw.Screenshots = append(raw.Screenshots, helpers.ResolveURL(doc.URL, href))
		}
	})

	q.Find("#star-div a.avatar-box, div.star-box a.avatar-box").Each(func(_ int, s *goquery.Selection) {
		img := s.Find("img").First()
		name := normSpace(s.Find("span").First().Text())
		if name == "" {
			name = normSpace(img.AttrOr("title", ""))
		}
		if name == "" {
			return
		}
		raw.Cast = append(raw.Cast, model.CastMember{
			Name:       name,
			ProfileURL: helpers.ResolveURL(doc.URL, s.AttrOr("href", "")),
			Avatar:     helpers.ResolveURL(doc.URL, img.AttrOr("src", "")),
		})
	})
	if len(raw.Cast) == 0 {
		raw.Cast = castFromLinks(q.Find("div.star-name a"), doc.URL)
	}

	q.Find("span.genre a").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(s.AttrOr("href", ""), "/genre/") {
			raw.Tags = append(raw.Tags, s.Text())
		}
	})
	raw.Tags = normList(raw.Tags)

	q.Find("#magnet-table tr").Each(func(_ int, tr *goquery.Selection) {
		a := tr.Find("a[href^='magnet:']").First()
		if a.Length() == 0 {
			return
		}
		cells := tr.Find("td")
		raw.Magnets = append(raw.Magnets, model.MagnetLink{
			Name: normSpace(a.Text()),
			URI:  strings.TrimSpace(a.AttrOr("href", "")),
			Size: normSpace(cells.Eq(1).Text()),
		})
	})

	if raw.Code == "" {
		raw.Code = code.Find(doc.URL)
	}
	return raw, nil
}
