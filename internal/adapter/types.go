package adapter

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"sjsage522/metaworker/internal/microdoc"
	"sjsage522/metaworker/internal/model"
)

// Capabilities advertised by adapters
const (
	CapDetail      = "detail"
	CapListing     = "listing"
	CapMagnets     = "magnets"
	CapDownloads   = "downloads"
	CapCast        = "cast"
	CapScreenshots = "screenshots"
	CapRating      = "rating"
)

// GenericSourceID identifies the fallback adapter
const GenericSourceID = "generic"

// ListingPage is the input to link discovery
type ListingPage struct {
	Markup    string
	OriginURL string
	Keyword   string
}

// CandidateLink is an unranked link found on a listing page
type CandidateLink struct {
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	Code       string  `json:"code"`
	Score      float64 `json:"score"`
	Provenance string  `json:"provenance"`
}

// ParseContext carries what the caller knows about the page being parsed
type ParseContext struct {
	DetailURL string
	OriginURL string
	Title     string
	Code      string
}

// RawFields is the best-effort field bag a site adapter produces from a
// detail page. Values are unvalidated; RatingScale is the maximum of the
// site's rating scale (0 means 10).
type RawFields struct {
	Title       string
	Code        string
	Cover       string
	Screenshots []string
	Cast        []model.CastMember
	Director    string
	Studio      string
	Label       string
	Series      string
	ReleaseDate string
	Duration    string
	Quality     string
	FileSize    string
	Resolution  string
	Tags        []string
	Magnets     []model.MagnetLink
	Downloads   []model.DownloadLink
	Description string
	Rating      string
	RatingScale float64
}

// SiteAdapter is the contract every per-site extractor implements
type SiteAdapter interface {
	// SourceID returns the stable identifier of the source
	SourceID() string

	// DisplayName returns a human readable name
	DisplayName() string

	// Capabilities lists what the adapter can extract
	Capabilities() []string

	// IsDetailURL reports whether rawURL points at a single-item page
	IsDetailURL(rawURL string) bool

	// ExtractCandidateLinks finds links to detail pages on a listing page
	ExtractCandidateLinks(page ListingPage) []CandidateLink

	// ParseDetail extracts raw fields from a detail page
	ParseDetail(doc *DetailDocument, pctx ParseContext) (*RawFields, error)
}

// DetailDocument is a parsed detail page. Adapters use the micro document for
// simple lookups and Query for row-oriented traversal.
type DetailDocument struct {
	*microdoc.Document
	URL string

	queryOnce sync.Once
	query     *goquery.Document
	queryErr  error
}

// NewDetailDocument wraps a detail page's markup
func NewDetailDocument(markup, pageURL string) *DetailDocument {
	return &DetailDocument{
		Document: microdoc.Parse(markup),
		URL:      pageURL,
	}
}

// Query returns a goquery view of the same markup, built on first use
func (d *DetailDocument) Query() (*goquery.Document, error) {
	d.queryOnce.Do(func() {
		d.query, d.queryErr = goquery.NewDocumentFromReader(strings.NewReader(d.Markup()))
	})
	return d.query, d.queryErr
}

// Meta returns the content of a <meta> tag matched by name or property
func (d *DetailDocument) Meta(key string) string {
	if el := d.QuerySelector("meta[property='" + key + "']"); el != nil {
		if v := el.AttrOr("content", ""); v != "" {
			return v
		}
	}
	if el := d.QuerySelector("meta[name='" + key + "']"); el != nil {
		return el.AttrOr("content", "")
	}
	return ""
}
