package helpers

import (
	"net/url"
	"strings"
)

// ResolveURL resolves href against base. Absolute and protocol-relative hrefs
// are returned as absolute URLs; unparsable input is returned unchanged.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

// ParseHTTPURL parses raw and accepts only absolute http(s) URLs with a host
func ParseHTTPURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	if u.Hostname() == "" {
		return nil, false
	}
	return u, true
}

// Host returns the lower-cased hostname of raw without port, or ""
func Host(raw string) string {
	u, ok := ParseHTTPURL(raw)
	if !ok {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// SameOrSubHost reports whether host equals parent or is a subdomain of it.
// A leading "www." is ignored on both sides.
func SameOrSubHost(host, parent string) bool {
	host = strings.TrimPrefix(strings.ToLower(strings.TrimSuffix(host, ".")), "www.")
	parent = strings.TrimPrefix(strings.ToLower(strings.TrimSuffix(parent, ".")), "www.")
	if host == "" || parent == "" {
		return false
	}
	return host == parent || strings.HasSuffix(host, "."+parent)
}

// NormalizeURL is the identity form used for cache keys: lower-cased scheme
// and host, no fragment, no trailing slash. The query is kept.
func NormalizeURL(raw string) string {
	u, ok := ParseHTTPURL(raw)
	if !ok {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// identityParams are query parameters that name the page itself on sites
// whose detail pages share one path (javlibrary's "/cn/?v=...").
var identityParams = []string{"v", "id", "p", "vid", "viewkey"}

// CompareKey is the form used to compare and de-duplicate links: lower-cased,
// trailing slash, query and fragment stripped. Identity parameters survive.
func CompareKey(raw string) string {
	u, ok := ParseHTTPURL(raw)
	if !ok {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	key := strings.ToLower(u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/"))
	q := u.Query()
	kept := url.Values{}
	for _, p := range identityParams {
		if v := q.Get(p); v != "" {
			kept.Set(p, strings.ToLower(v))
		}
	}
	if len(kept) > 0 {
		key += "?" + kept.Encode()
	}
	return key
}
