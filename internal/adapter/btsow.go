package adapter

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"sjsage522/metaworker/internal/code"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/pkg/errors"
)

const (
	provBtsowDataList   = "btsow:data-list"
	provBtsowDetailPath = "btsow:detail-path"
)

func btsowConfig(baseURL string) SiteConfig {
	return SiteConfig{
		SourceID:      "btsow",
		DisplayName:   "BTSOW",
		BaseURL:       baseURL,
		HostKeywords:  []string{"btsow"},
		Capabilities:  []string{CapDetail, CapListing, CapMagnets},
		DetailPattern: regexp.MustCompile(`(?i)^/magnet/detail/hash/[0-9a-f]{32,40}/?$`),
		Strategies: []LinkStrategy{
			{Provenance: provBtsowDataList, Selector: "div.data-list div.row a", BaseScore: 60},
			{Provenance: provBtsowDetailPath, Selector: "a[href*='/magnet/detail/hash/']", BaseScore: 50},
		},
		Parse: parseBtsow,
	}
}

func parseBtsow(doc *DetailDocument, pctx ParseContext) (*RawFields, error) {
	q, err := doc.Query()
	if err != nil {
		return nil, err
	}

	uri := strings.TrimSpace(q.Find("textarea#magnetLink").First().Text())
	if uri == "" {
		uri = strings.TrimSpace(q.Find("a[href^='magnet:']").First().AttrOr("href", ""))
	}
	title := normSpace(q.Find("h3").First().Text())
	if uri == "" && title == "" {
		return nil, errors.NewAdapter("btsow", "no magnet or title (non-detail page)", nil)
	}

	raw := &RawFields{
		Title:      title,
		Code:       code.Find(title),
		Resolution: resolutionOf(title),
	}
	raw.Quality = qualityOf(raw.Resolution)

	q.Find("div.row").Each(func(_ int, s *goquery.Selection) {
		field := s.Find("div.field").First()
		if field.Length() == 0 {
			return
		}
		value := normSpace(s.Find("div.value").First().Text())
		switch normHeader(field.Text()) {
		case "Size", "File Size":
			raw.FileSize = value
		case "Convert On", "Date":
			raw.ReleaseDate = dateRE.FindString(value)
		}
	})

	var files []string
	q.Find("div.detail div.row").Each(func(_ int, s *goquery.Selection) {
		name := normSpace(s.Find("div.file").First().Text())
		if name == "" {
			return
		}
		if size := normSpace(s.Find("div.size").First().Text()); size != "" {
			name += " (" + size + ")"
		}
		files = append(files, name)
	})
	if len(files) > 0 {
		raw.Description = "Files: " + strings.Join(files, "; ")
	}

	if uri != "" {
		name := magnetDisplayName(uri)
		if name == "" {
			name = title
		}
		raw.Magnets = []model.MagnetLink{{Name: name, URI: uri, Size: raw.FileSize}}
	}
	return raw, nil
}
