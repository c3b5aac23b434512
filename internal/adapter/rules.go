package adapter

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"sjsage522/metaworker/helpers"
	"sjsage522/metaworker/internal/model"
)

// exclusionPatterns match listing, search, taxonomy and pagination paths.
// They are shared by every adapter and by the ranker.
var exclusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/search(?:/|\?|$|\.php)`),
	regexp.MustCompile(`(?i)vl_search`),
	regexp.MustCompile(`(?i)/(?:tags?|genres?|categor(?:y|ies)|labels?|series|studios?|makers?|directors?|publishers?)(?:/|$)`),
	regexp.MustCompile(`(?i)/(?:star|stars|actors?|actress(?:es)?|models?|uncensored/star)(?:/|$)`),
	regexp.MustCompile(`(?i)/page/\d+`),
	regexp.MustCompile(`(?i)[?&](?:page|offset|sort|s|q|keyword|kw)=`),
	regexp.MustCompile(`(?i)/(?:login|register|signup|logout|forum|rankings?|lists?|help|faq|about|contact|upload|rss)(?:/|$)`),
	regexp.MustCompile(`(?i)/(?:vl_|genre|star|label|maker|director)[a-z]*\.php`),
}

var spamHosts = []string{
	"doubleclick.net", "googlesyndication.com", "google-analytics.com",
	"googletagmanager.com", "exoclick.com", "juicyads.com", "trafficjunky.net",
	"trafficstars.com", "popads.net", "adsterra.com", "t.me", "twitter.com",
	"x.com", "facebook.com", "discord.gg", "telegram.me",
}

// highConfidence lists provenance tags whose matches earn the ranker bonus
var highConfidence = map[string]bool{
	provJavbusMovieBox:    true,
	provJavdbMovieList:    true,
	provJavlibraryVideos:  true,
	provJableVideoBox:     true,
	provMissavThumbnail:   true,
	provSukebeiTorrentRow: true,
	provBtsowDataList:     true,
	provGenericCodeAnchor: true,
}

// IsExcluded reports whether rawURL is a search, taxonomy or pagination page
func IsExcluded(rawURL string) bool {
	u, ok := helpers.ParseHTTPURL(rawURL)
	if !ok {
		return true
	}
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	for _, re := range exclusionPatterns {
		if re.MatchString(target) {
			return true
		}
	}
	return false
}

// IsSpamHost reports whether host belongs to a known ad, tracker or social host
func IsSpamHost(host string) bool {
	for _, s := range spamHosts {
		if helpers.SameOrSubHost(host, s) {
			return true
		}
	}
	return false
}

// IsHighConfidence reports whether a provenance tag earns a ranking bonus
func IsHighConfidence(provenance string) bool {
	return highConfidence[provenance]
}

func detailPath(rawURL string) (*url.URL, bool) {
	u, ok := helpers.ParseHTTPURL(rawURL)
	if !ok || IsExcluded(rawURL) {
		return nil, false
	}
	return u, true
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func normHeader(s string) string {
	s = normSpace(s)
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, "：")
	return strings.TrimSpace(s)
}

func normList(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = normSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func headerIn(h string, headers []string) bool {
	h = normHeader(h)
	for _, want := range headers {
		if strings.EqualFold(h, want) {
			return true
		}
	}
	return false
}

// findRow returns the first row whose header cell matches one of headers
func findRow(rows *goquery.Selection, headerSel string, headers ...string) *goquery.Selection {
	var found *goquery.Selection
	rows.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if headerIn(s.Find(headerSel).First().Text(), headers) {
			found = s
			return false
		}
		return true
	})
	return found
}

// rowValue prefers the first link text inside row, else the row text with
// the header removed.
func rowValue(row *goquery.Selection, headerSel string) string {
	if row == nil {
		return ""
	}
	if a := normSpace(row.Find("a").First().Text()); a != "" {
		return a
	}
	header := normSpace(row.Find(headerSel).First().Text())
	return strings.TrimSpace(strings.TrimPrefix(normSpace(row.Text()), header))
}

func linkTexts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, a *goquery.Selection) {
		out = append(out, a.Text())
	})
	return normList(out)
}

func castFromLinks(sel *goquery.Selection, base string) []model.CastMember {
	var cast []model.CastMember
	sel.Each(func(_ int, a *goquery.Selection) {
		name := normSpace(a.Text())
		if name == "" {
			name = normSpace(a.AttrOr("title", ""))
		}
		if name == "" {
			return
		}
		cast = append(cast, model.CastMember{
			Name:       name,
			ProfileURL: helpers.ResolveURL(base, a.AttrOr("href", "")),
		})
	})
	return cast
}

func magnetsFrom(sel *goquery.Selection) []model.MagnetLink {
	var out []model.MagnetLink
	sel.Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		name := normSpace(a.Text())
		if name == "" {
			name = magnetDisplayName(href)
		}
		out = append(out, model.MagnetLink{Name: name, URI: href})
	})
	return out
}

// magnetDisplayName returns the dn= parameter of a magnet URI
func magnetDisplayName(uri string) string {
	i := strings.Index(uri, "?")
	if i < 0 {
		return ""
	}
	q, err := url.ParseQuery(uri[i+1:])
	if err != nil {
		return ""
	}
	return q.Get("dn")
}

var (
	resolutionRE = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p|4k)\b`)
	dateRE       = regexp.MustCompile(`\d{4}[-/.]\d{1,2}[-/.]\d{1,2}`)
	streamRE     = regexp.MustCompile(`https?://[^'"\s<>]+?\.m3u8[^'"\s<>]*`)
)

func resolutionOf(s string) string {
	m := resolutionRE.FindString(s)
	if strings.EqualFold(m, "4k") {
		return "2160p"
	}
	return strings.ToLower(m)
}

func qualityOf(resolution string) string {
	switch resolution {
	case "2160p":
		return "UHD"
	case "1080p", "720p":
		return "HD"
	case "480p":
		return "SD"
	}
	return ""
}

// streamLinks finds HLS playlist URLs embedded in page scripts
func streamLinks(markup string) []model.DownloadLink {
	var out []model.DownloadLink
	seen := make(map[string]bool)
	for _, m := range streamRE.FindAllString(markup, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, model.DownloadLink{Name: "HLS stream", URL: m, Type: "hls"})
	}
	return out
}

func castMember(name, profileURL, avatar string) model.CastMember {
	return model.CastMember{Name: normSpace(name), ProfileURL: profileURL, Avatar: strings.TrimSpace(avatar)}
}
