// Package code finds and normalizes release serial codes such as IPX-156 or
// FC2-PPV-1234567.
package code

import (
	"regexp"
	"strings"
)

// The separator is mandatory so noise like "SAMPLE123" never becomes a code.
var (
	fc2RE      = regexp.MustCompile(`(?i)fc2[\s._-]*(?:ppv[\s._-]*)?([0-9]{5,8})`)
	standardRE = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])([a-z]{2,6})[\s._-]+([0-9]{2,5})`)
	strictRE   = regexp.MustCompile(`^(?:[A-Z]{2,6}-[0-9]{2,5}|FC2-PPV-[0-9]{5,8})$`)
	compactRE  = regexp.MustCompile(`(?i)^([a-z]{2,6})([0-9]{2,5})$`)
)

// Find returns the first normalized code in s, or "".
func Find(s string) string {
	all := findAll(s)
	if len(all) == 0 {
		return ""
	}
	return all[0]
}

// findAll returns every distinct normalized code in s, in order of appearance.
func findAll(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	type hit struct {
		pos  int
		code string
	}
	var hits []hit
	for _, m := range fc2RE.FindAllStringSubmatchIndex(s, -1) {
		hits = append(hits, hit{pos: m[0], code: "FC2-PPV-" + s[m[2]:m[3]]})
	}
	for _, m := range standardRE.FindAllStringSubmatchIndex(s, -1) {
		// the digit run must end here; the separator stays available to the next match
		if m[1] < len(s) && s[m[1]] >= '0' && s[m[1]] <= '9' {
			continue
		}
		prefix := strings.ToUpper(s[m[2]:m[3]])
		if prefix == "FC" || prefix == "PPV" {
			continue
		}
		hits = append(hits, hit{pos: m[2], code: prefix + "-" + s[m[4]:m[5]]})
	}

	// insertion sort keeps order of appearance; hit lists are tiny
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	seen := make(map[string]struct{}, len(hits))
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.code]; ok {
			continue
		}
		seen[h.code] = struct{}{}
		out = append(out, h.code)
	}
	return out
}

// Normalize converts a loosely formatted code ("ipx_156", "IPX156") into its
// canonical form. It returns "" when s does not look like a code.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if c := Find(s); c != "" {
		return c
	}
	// tolerate the separator-less spelling only when it is the whole input
	compact := compactRE.FindStringSubmatch(s)
	if compact == nil {
		return ""
	}
	return strings.ToUpper(compact[1]) + "-" + compact[2]
}

// Valid reports whether s is already a canonical code.
func Valid(s string) bool {
	return strictRE.MatchString(s)
}

// Equal compares two codes after normalization.
func Equal(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

// Contains reports whether the normalized code appears anywhere in s,
// tolerating separator differences ("ipx156" contains IPX-156).
func Contains(s, c string) bool {
	c = Normalize(c)
	if c == "" {
		return false
	}
	flat := func(v string) string {
		return strings.Map(func(r rune) rune {
			switch r {
			case '-', '_', ' ', '.':
				return -1
			}
			return r
		}, strings.ToUpper(v))
	}
	return strings.Contains(flat(s), flat(c))
}
