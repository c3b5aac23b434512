package adapter

import (
	"fmt"
	"regexp"
	"strings"

	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/code"
	"sjsage522/metaworker/internal/microdoc"
	"sjsage522/metaworker/pkg/errors"
)

// DetailParserFunc extracts raw fields from one site's detail page
type DetailParserFunc func(doc *DetailDocument, pctx ParseContext) (*RawFields, error)

// LinkStrategy is one way of finding detail links on a listing page
type LinkStrategy struct {
	Provenance    string
	Selector      string // anchors to collect
	TitleSelector string // optional, scoped inside the anchor
	CodeSelector  string // optional, scoped inside the anchor
	BaseScore     float64
}

// SiteConfig describes one named source
type SiteConfig struct {
	SourceID     string
	DisplayName  string
	BaseURL      string
	HostKeywords []string
	Capabilities []string

	// DetailPattern is matched against the URL path, plus "?query" when present
	DetailPattern *regexp.Regexp
	Strategies    []LinkStrategy
	Parse         DetailParserFunc
}

// ConfigurableAdapter is a site adapter driven by a SiteConfig
type ConfigurableAdapter struct {
	cfg SiteConfig
}

var _ SiteAdapter = (*ConfigurableAdapter)(nil)

// NewConfigurableAdapter validates cfg and builds an adapter from it
func NewConfigurableAdapter(cfg SiteConfig) (*ConfigurableAdapter, error) {
	if strings.TrimSpace(cfg.SourceID) == "" {
		return nil, errors.NewConfiguration("site config without source id", nil)
	}
	if cfg.DetailPattern == nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("%s: missing detail pattern", cfg.SourceID), nil)
	}
	if cfg.Parse == nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("%s: missing detail parser", cfg.SourceID), nil)
	}
	if len(cfg.Strategies) == 0 {
		return nil, errors.NewConfiguration(fmt.Sprintf("%s: no link strategies", cfg.SourceID), nil)
	}
	if _, ok := helpers.ParseHTTPURL(cfg.BaseURL); !ok {
		return nil, errors.NewConfiguration(fmt.Sprintf("%s: invalid base url %q", cfg.SourceID, cfg.BaseURL), nil)
	}
	return &ConfigurableAdapter{cfg: cfg}, nil
}

func (a *ConfigurableAdapter) SourceID() string    { return a.cfg.SourceID }
func (a *ConfigurableAdapter) DisplayName() string { return a.cfg.DisplayName }
func (a *ConfigurableAdapter) Capabilities() []string {
	return append([]string(nil), a.cfg.Capabilities...)
}

// IsDetailURL applies the site's structural rule after the shared exclusions
func (a *ConfigurableAdapter) IsDetailURL(rawURL string) bool {
	u, ok := detailPath(rawURL)
	if !ok {
		return false
	}
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return a.cfg.DetailPattern.MatchString(target)
}

// ExtractCandidateLinks tries each strategy in order and returns the links of
// the first one that matches anything.
func (a *ConfigurableAdapter) ExtractCandidateLinks(page ListingPage) []CandidateLink {
	doc := microdoc.Parse(page.Markup)
	base := page.OriginURL
	if base == "" {
		base = a.cfg.BaseURL
	}
	for _, s := range a.cfg.Strategies {
		if links := collectLinks(doc, base, s); len(links) > 0 {
			return links
		}
	}
	return nil
}

// ParseDetail runs the site parser and wraps its failures as adapter errors
func (a *ConfigurableAdapter) ParseDetail(doc *DetailDocument, pctx ParseContext) (*RawFields, error) {
	if doc == nil || strings.TrimSpace(doc.Markup()) == "" {
		return nil, errors.NewAdapter(a.cfg.SourceID, "empty detail document", nil)
	}
	raw, err := a.cfg.Parse(doc, pctx)
	if err != nil {
		if errors.TypeOf(err) != "" {
			return nil, err
		}
		return nil, errors.NewAdapter(a.cfg.SourceID, "parse detail page", err)
	}
	if raw == nil {
		return nil, errors.NewAdapter(a.cfg.SourceID, "parser returned no fields", nil)
	}
	return raw, nil
}

func collectLinks(doc *microdoc.Document, base string, s LinkStrategy) []CandidateLink {
	var out []CandidateLink
	for _, el := range doc.QuerySelectorAll(s.Selector) {
		if link, ok := candidateFrom(el, base, s); ok {
			out = append(out, link)
		}
	}
	return out
}

func candidateFrom(el *microdoc.Element, base string, s LinkStrategy) (CandidateLink, bool) {
	href := el.Href()
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return CandidateLink{}, false
	}

	title := ""
	if s.TitleSelector != "" {
		if t := el.QuerySelector(s.TitleSelector); t != nil {
			title = t.Text()
		}
	}
	if title == "" {
		title = el.Title()
	}
	if title == "" {
		if img := el.QuerySelector("img"); img != nil {
			title = img.AttrOr("title", img.AttrOr("alt", ""))
		}
	}
	if title == "" {
		title = el.Text()
	}

	c := ""
	if s.CodeSelector != "" {
		if n := el.QuerySelector(s.CodeSelector); n != nil {
			c = code.Normalize(n.Text())
		}
	}
	if c == "" {
		c = code.Find(title)
	}
	if c == "" {
		c = code.Find(href)
	}

	return CandidateLink{
		URL:        helpers.ResolveURL(base, href),
		Title:      normSpace(title),
		Code:       c,
		Score:      s.BaseScore,
		Provenance: s.Provenance,
	}, true
}
