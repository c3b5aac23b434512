package adapter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/code"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/pkg/errors"
)

const (
	provSukebeiTorrentRow = "sukebei:torrent-list"
	provSukebeiViewPath   = "sukebei:view-path"
)

func sukebeiConfig(baseURL string) SiteConfig {
	return SiteConfig{
		SourceID:      "sukebei",
		DisplayName:   "Sukebei Nyaa",
		BaseURL:       baseURL,
		HostKeywords:  []string{"sukebei", "nyaa"},
		Capabilities:  []string{CapDetail, CapListing, CapMagnets, CapDownloads},
		DetailPattern: regexp.MustCompile(`^/view/\d+/?$`),
		Strategies: []LinkStrategy{
			{Provenance: provSukebeiTorrentRow, Selector: "table.torrent-list a[href^='/view/']", BaseScore: 60},
			{Provenance: provSukebeiViewPath, Selector: "a[href^='/view/']", BaseScore: 50},
		},
		Parse: parseSukebei,
	}
}

func parseSukebei(doc *DetailDocument, pctx ParseContext) (*RawFields, error) {
	q, err := doc.Query()
	if err != nil {
		return nil, err
	}
	title := normSpace(q.Find("h3.panel-title").First().Text())
	if title == "" {
		return nil, errors.NewAdapter("sukebei", "no torrent title (non-detail page)", nil)
	}

	raw := &RawFields{
		Title:       title,
		Code:        code.Find(title),
		Resolution:  resolutionOf(title),
		Description: normSpace(q.Find("#torrent-description").First().Text()),
	}
	raw.Quality = qualityOf(raw.Resolution)

	var seeders, leechers int
	q.Find("div.panel-body div.col-md-1").Each(func(_ int, s *goquery.Selection) {
		value := s.Next()
		switch normHeader(s.Text()) {
		case "Date":
			raw.ReleaseDate = dateRE.FindString(value.Text())
		case "File size":
			raw.FileSize = normSpace(value.Text())
		case "Seeders":
			seeders, _ = strconv.Atoi(normSpace(value.Text()))
		case "Leechers":
			leechers, _ = strconv.Atoi(normSpace(value.Text()))
		}
	})

	for _, m := range magnetsFrom(q.Find("a[href^='magnet:']")) {
		if m.Name == "" || strings.EqualFold(m.Name, "magnet") {
			m.Name = title
		}
		m.Size, m.Seeders, m.Leechers = raw.FileSize, seeders, leechers
		raw.Magnets = append(raw.Magnets, m)
	}

	q.Find("a[href$='.torrent']").Each(func(_ int, a *goquery.Selection) {
		raw.Downloads = append(raw.Downloads, model.DownloadLink{
			Name: title + ".torrent",
			URL:  helpers.ResolveURL(doc.URL, a.AttrOr("href", "")),
			Type: "torrent",
			Size: raw.FileSize,
		})
	})
	return raw, nil
}
