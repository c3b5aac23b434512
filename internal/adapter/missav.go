package adapter

import (
	"regexp"
	"strings"

	"sjsage522/metaworker/internal/code"
	"sjsage522/metaworker/pkg/errors"
)

const (
	provMissavThumbnail = "missav:thumbnail"
	provMissavTitleLink = "missav:title-link"
)

// missavConfig: detail pages are /{code} or /{lang}/{code}, optionally with a
// variant suffix such as -uncensored-leak or -chinese-subtitle
func missavConfig(baseURL string) SiteConfig {
	return SiteConfig{
		SourceID:     "missav",
		DisplayName:  "MissAV",
		BaseURL:      baseURL,
		HostKeywords: []string{"missav"},
		Capabilities: []string{CapDetail, CapListing, CapCast, CapDownloads},
		DetailPattern: regexp.MustCompile(
			`(?i)^/(?:(?:[a-z]{2}|zh-[a-z]{2,4}|dm\d+/[a-z]{2})/)?(?:[a-z]{2,6}-\d{2,5}|fc2-ppv-\d{5,8})(?:-[a-z-]+)?/?$`),
		Strategies: []LinkStrategy{
			{Provenance: provMissavThumbnail, Selector: "div.thumbnail a", BaseScore: 55},
			{Provenance: provMissavTitleLink, Selector: "a.text-secondary", BaseScore: 45},
		},
		Parse: parseMissav,
	}
}

func parseMissav(doc *DetailDocument, pctx ParseContext) (*RawFields, error) {
	q, err := doc.Query()
	if err != nil {
		return nil, err
	}
	rows := q.Find("div.space-y-2 div.text-secondary")
	title := normSpace(q.Find("h1").First().Text())
	if rows.Length() == 0 && title == "" {
		return nil, errors.NewAdapter("missav", "no title or info rows (non-detail page)", nil)
	}

	info := func(headers ...string) string {
		return rowValue(findRow(rows, "span", headers...), "span")
	}

	raw := &RawFields{
		Title:       title,
		Cover:       doc.Meta("og:image"),
		Code:        code.Normalize(info("番號", "番号", "Code", "品番")),
		ReleaseDate: info("發行日期", "发行日期", "Release date", "配信開始日"),
		Director:    info("導演", "导演", "Director", "監督"),
		Studio:      info("發行商", "发行商", "Maker", "メーカー"),
		Label:       info("標籤", "标籤", "Label", "レーベル"),
		Series:      info("系列", "Series", "シリーズ"),
		Downloads:   streamLinks(doc.Markup()),
	}
	if d := strings.TrimSpace(q.Find("div.text-secondary.break-all").First().Text()); d != "" {
		raw.Description = normSpace(d)
	} else {
		raw.Description = doc.Meta("og:description")
	}
	if row := findRow(rows, "span", "女優", "女优", "Actress"); row != nil {
		raw.Cast = castFromLinks(row.Find("a"), doc.URL)
	}
	if row := findRow(rows, "span", "類型", "类型", "Genre", "ジャンル"); row != nil {
		raw.Tags = linkTexts(row.Find("a"))
	}

	if raw.Code == "" {
		raw.Code = code.Find(doc.URL)
	}
	if raw.Code != "" && strings.HasPrefix(strings.ToUpper(raw.Title), raw.Code) {
		raw.Title = strings.TrimSpace(raw.Title[len(raw.Code):])
	}
	if strings.Contains(strings.ToLower(doc.URL), "uncensored") {
		raw.Quality = "uncensored"
	}
	return raw, nil
}
