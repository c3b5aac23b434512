package adapter

import (
	"path"
	"strings"

	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/code"
	"sjsage522/metaworker/internal/microdoc"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/pkg/errors"
)

const (
	provGenericContainer  = "generic:container"
	provGenericCodeAnchor = "generic:code-anchor"
)

// containerSelector covers the card/tile class names most listing templates use
const containerSelector = ".item a, .video a, .movie a, .thumbnail a, .card a, .post a, .video-item a, .movie-box"

var downloadSuffixes = map[string]string{
	".torrent": "torrent",
	".m3u8":    "hls",
	".mp4":     "video",
	".mkv":     "video",
	".zip":     "archive",
	".rar":     "archive",
}

// GenericAdapter handles sites without a dedicated adapter using a small
// union of heuristics. It never inspects more than maxAnchors anchors.
type GenericAdapter struct {
	maxAnchors int
}

var _ SiteAdapter = (*GenericAdapter)(nil)

// NewGenericAdapter creates the fallback adapter
func NewGenericAdapter(maxAnchors int) (*GenericAdapter, error) {
	if maxAnchors <= 0 {
		return nil, errors.NewConfiguration("generic adapter needs a positive anchor cap", nil)
	}
	return &GenericAdapter{maxAnchors: maxAnchors}, nil
}

func (g *GenericAdapter) SourceID() string    { return GenericSourceID }
func (g *GenericAdapter) DisplayName() string { return "Generic" }

func (g *GenericAdapter) Capabilities() []string {
	return []string{CapDetail, CapListing, CapMagnets, CapDownloads}
}

// IsDetailURL accepts URLs whose last path segment carries a serial code
func (g *GenericAdapter) IsDetailURL(rawURL string) bool {
	u, ok := detailPath(rawURL)
	if !ok {
		return false
	}
	last := path.Base(strings.TrimRight(u.Path, "/"))
	return last != "" && last != "/" && last != "." && code.Find(last) != ""
}

// ExtractCandidateLinks tries container anchors first, then any anchor whose
// href or text carries a serial code.
func (g *GenericAdapter) ExtractCandidateLinks(page ListingPage) []CandidateLink {
	doc := microdoc.Parse(page.Markup)

	anchors := doc.QuerySelectorAll(containerSelector)
	if len(anchors) > g.maxAnchors {
		anchors = anchors[:g.maxAnchors]
	}
	var out []CandidateLink
	s := LinkStrategy{Provenance: provGenericContainer, BaseScore: 45}
	for _, el := range anchors {
		if link, ok := candidateFrom(el, page.OriginURL, s); ok {
			out = append(out, link)
		}
	}
	if len(out) > 0 {
		return out
	}

	anchors = doc.QuerySelectorAll("a[href]")
	if len(anchors) > g.maxAnchors {
		anchors = anchors[:g.maxAnchors]
	}
	s = LinkStrategy{Provenance: provGenericCodeAnchor, BaseScore: 50}
	for _, el := range anchors {
		link, ok := candidateFrom(el, page.OriginURL, s)
		if !ok || link.Code == "" {
			continue
		}
		out = append(out, link)
	}
	return out
}

// ParseDetail reads Open Graph metadata, headings and any magnet or file links
func (g *GenericAdapter) ParseDetail(doc *DetailDocument, pctx ParseContext) (*RawFields, error) {
	if doc == nil || strings.TrimSpace(doc.Markup()) == "" {
		return nil, errors.NewAdapter(GenericSourceID, "empty detail document", nil)
	}

	raw := &RawFields{
		Title:       normSpace(doc.Meta("og:title")),
		Cover:       helpers.ResolveURL(doc.URL, doc.Meta("og:image")),
		Description: normSpace(doc.Meta("og:description")),
	}
	if raw.Title == "" {
		if h1 := doc.QuerySelector("h1"); h1 != nil {
			raw.Title = h1.Text()
		}
	}
	if raw.Title == "" {
		if t := doc.QuerySelector("title"); t != nil {
			raw.Title = t.Text()
		}
	}
	if raw.Description == "" {
		raw.Description = normSpace(doc.Meta("description"))
	}

	raw.Code = code.Find(raw.Title)
	if raw.Code == "" {
		raw.Code = code.Find(doc.URL)
	}
	if raw.Code == "" {
		raw.Code = code.Normalize(pctx.Code)
	}

	if kw := doc.Meta("keywords"); kw != "" {
		raw.Tags = normList(strings.Split(kw, ","))
	}
	if t := doc.QuerySelector("time[datetime]"); t != nil {
		raw.ReleaseDate = dateRE.FindString(t.AttrOr("datetime", ""))
	}
	if raw.ReleaseDate == "" {
		raw.ReleaseDate = doc.Meta("video:release_date")
	}

	anchors := doc.QuerySelectorAll("a[href]")
	if len(anchors) > g.maxAnchors {
		anchors = anchors[:g.maxAnchors]
	}
	for _, a := range anchors {
		href := a.Href()
		if strings.HasPrefix(strings.ToLower(href), "magnet:") {
			name := a.Text()
			if name == "" {
				name = magnetDisplayName(href)
			}
			raw.Magnets = append(raw.Magnets, model.MagnetLink{Name: name, URI: href})
			continue
		}
		abs := helpers.ResolveURL(doc.URL, href)
		u, ok := helpers.ParseHTTPURL(abs)
		if !ok {
			continue
		}
		if kind, ok := downloadSuffixes[strings.ToLower(path.Ext(u.Path))]; ok {
			name := a.Text()
			if name == "" {
				name = path.Base(u.Path)
			}
			raw.Downloads = append(raw.Downloads, model.DownloadLink{Name: name, URL: abs, Type: kind})
		}
	}
	raw.Downloads = append(raw.Downloads, streamLinks(doc.Markup())...)

	raw.Resolution = resolutionOf(raw.Title)
	raw.Quality = qualityOf(raw.Resolution)
	return raw, nil
}
