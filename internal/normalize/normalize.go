// Package normalize maps raw adapter output into the canonical record schema.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"sjsage522/metaworker/config"
	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/adapter"
	"sjsage522/metaworker/internal/code"
	"sjsage522/metaworker/internal/model"
)

// Limits caps the list fields of a record
type Limits struct {
	MaxScreenshots   int
	MaxMagnetLinks   int
	MaxDownloadLinks int
}

// LimitsFromConfig reads the list caps from the configuration
func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		MaxScreenshots:   cfg.MaxScreenshots,
		MaxMagnetLinks:   cfg.MaxMagnetLinks,
		MaxDownloadLinks: cfg.MaxDownloadLinks,
	}
}

// Target identifies where the raw fields came from
type Target struct {
	SourceID  string
	OriginURL string
	DetailURL string
}

// Normalizer validates and repairs raw adapter output
type Normalizer struct {
	limits Limits
}

func New(limits Limits) *Normalizer {
	return &Normalizer{limits: limits}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"2006-1-2",
	"2006/1/2",
	"20060102",
	"02/01/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var (
	cjkDateRE = regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`)
	hmsRE     = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	numberRE  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	signedRE  = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// Normalize builds a total ExtractionRecord from raw. Fields that do not
// survive validation are left at their zero value, never nil.
func (n *Normalizer) Normalize(raw *adapter.RawFields, t Target) model.ExtractionRecord {
	rec := Empty()
	rec.SourceID = t.SourceID
	rec.OriginURL = t.OriginURL
	rec.DetailURL = t.DetailURL
	if raw == nil {
		return rec
	}

	detailHost := helpers.Host(t.DetailURL)

	rec.Title = clean(raw.Title)
	rec.Code = raw.Code
	if !code.Valid(rec.Code) {
		rec.Code = code.Normalize(raw.Code)
	}
	if rec.Code == "" {
		rec.Code = code.Find(raw.Title)
	}
	rec.Cover = imageURL(raw.Cover, t.DetailURL)
	rec.Director = clean(raw.Director)
	rec.Studio = clean(raw.Studio)
	rec.Label = clean(raw.Label)
	rec.Series = clean(raw.Series)
	rec.ReleaseDate = Date(raw.ReleaseDate)
	rec.DurationMinutes = Minutes(raw.Duration)
	rec.Quality = clean(raw.Quality)
	rec.FileSize = clean(raw.FileSize)
	rec.Resolution = clean(raw.Resolution)
	rec.Description = clean(raw.Description)
	rec.Rating = Rating(raw.Rating, raw.RatingScale)

	rec.Screenshots = n.screenshots(raw.Screenshots, t.DetailURL)
	rec.Cast = dedupeCast(raw.Cast, t.DetailURL)
	rec.Tags = dedupeStrings(raw.Tags)
	rec.MagnetLinks = n.magnets(raw.Magnets)
	rec.DownloadLinks = n.downloads(raw.Downloads, t.DetailURL, detailHost)
	return rec
}

// Empty returns a record with every list initialised
func Empty() model.ExtractionRecord {
	return model.ExtractionRecord{
		Screenshots:   []string{},
		Cast:          []model.CastMember{},
		Tags:          []string{},
		MagnetLinks:   []model.MagnetLink{},
		DownloadLinks: []model.DownloadLink{},
	}
}

// Date parses s in one of the known layouts and returns YYYY-MM-DD, or ""
func Date(s string) string {
	s = clean(s)
	if s == "" {
		return ""
	}
	if m := cjkDateRE.FindStringSubmatch(s); m != nil {
		s = m[1] + "-" + m[2] + "-" + m[3]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	// dates embedded in longer text ("Released 2018-06-13 (JP)")
	for _, layout := range dateLayouts[:5] {
		for _, field := range strings.Fields(s) {
			if t, err := time.Parse(layout, strings.Trim(field, "()[],")); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return ""
}

// Minutes reads a duration such as "120分鐘", "120 min" or "01:58:30"
func Minutes(s string) int {
	s = clean(s)
	if s == "" {
		return 0
	}
	if m := hmsRE.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		if m[3] == "" {
			// mm:ss
			return h
		}
		return h*60 + mins
	}
	n := numberRE.FindString(s)
	if n == "" {
		return 0
	}
	f, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return 0
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "hour") || strings.Contains(lower, "小時") || strings.Contains(lower, "小时") {
		return int(f * 60)
	}
	return int(f)
}

// Rating coerces s to a number on a 0..10 scale. scale is the maximum of the
// source's scale; 0 means the value is already out of 10.
func Rating(s string, scale float64) float64 {
	n := signedRE.FindString(strings.TrimSpace(s))
	if n == "" {
		return 0
	}
	v, err := strconv.ParseFloat(n, 64)
	if err != nil {
		return 0
	}
	if scale > 0 && scale != 10 {
		v = v * 10 / scale
	}
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return float64(int(v*100+0.5)) / 100
}

func (n *Normalizer) screenshots(in []string, base string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, s := range in {
		u := imageURL(s, base)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if n.limits.MaxScreenshots > 0 && len(out) >= n.limits.MaxScreenshots {
			break
		}
	}
	return out
}

func (n *Normalizer) magnets(in []model.MagnetLink) []model.MagnetLink {
	out := []model.MagnetLink{}
	seen := make(map[string]bool)
	for _, m := range in {
		m.URI = strings.TrimSpace(m.URI)
		if !strings.HasPrefix(m.URI, model.MagnetURIPrefix) || seen[m.URI] {
			continue
		}
		seen[m.URI] = true
		m.Name = clean(m.Name)
		m.Size = clean(m.Size)
		if m.Seeders < 0 {
			m.Seeders = 0
		}
		if m.Leechers < 0 {
			m.Leechers = 0
		}
		out = append(out, m)
		if n.limits.MaxMagnetLinks > 0 && len(out) >= n.limits.MaxMagnetLinks {
			break
		}
	}
	return out
}

// downloads keeps well-formed http(s) links on the detail page's host or a
// subdomain of it.
func (n *Normalizer) downloads(in []model.DownloadLink, base, detailHost string) []model.DownloadLink {
	out := []model.DownloadLink{}
	seen := make(map[string]bool)
	for _, d := range in {
		abs := helpers.ResolveURL(base, d.URL)
		u, ok := helpers.ParseHTTPURL(abs)
		if !ok || seen[abs] {
			continue
		}
		if detailHost != "" && !helpers.SameOrSubHost(u.Hostname(), detailHost) {
			continue
		}
		seen[abs] = true
		d.URL = abs
		d.Name = clean(d.Name)
		d.Type = strings.ToLower(clean(d.Type))
		if d.Type == "" {
			d.Type = "direct"
		}
		d.Size = clean(d.Size)
		d.Quality = clean(d.Quality)
		out = append(out, d)
		if n.limits.MaxDownloadLinks > 0 && len(out) >= n.limits.MaxDownloadLinks {
			break
		}
	}
	return out
}

func imageURL(s, base string) string {
	abs := helpers.ResolveURL(base, s)
	if _, ok := helpers.ParseHTTPURL(abs); !ok {
		return ""
	}
	return abs
}

func dedupeCast(in []model.CastMember, base string) []model.CastMember {
	out := []model.CastMember{}
	seen := make(map[string]bool)
	for _, c := range in {
		c.Name = clean(c.Name)
		if c.Name == "" || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		c.ProfileURL = imageURL(c.ProfileURL, base)
		c.Avatar = imageURL(c.Avatar, base)
		out = append(out, c)
	}
	return out
}

func dedupeStrings(in []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, s := range in {
		s = clean(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
