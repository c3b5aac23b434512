package microdoc

import "strings"

// shape is the structural category a selector string is classified into.
type shape int

const (
	shapeUnsupported shape = iota
	shapeTag
	shapeClass
	shapeID
	shapeAttr
	shapeDescendant
	shapeGroup
)

// attrCond is a single [name op value] condition.
type attrCond struct {
	name  string
	op    string // "", "=", "^=", "$=", "*=", "~="
	value string
}

// compound is one whitespace-free selector part such as div.item or a[href^='/v/'].
type compound struct {
	tag     string
	id      string
	classes []string
	attr    *attrCond
}

type selector struct {
	shape shape
	parts []compound
	group []*selector
}

// classify turns a selector string into its shape. Combinators other than
// descendant whitespace, and all pseudo-classes, are unsupported.
func classify(raw string) *selector {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &selector{shape: shapeUnsupported}
	}

	if strings.Contains(outsideBrackets(raw), ",") {
		g := &selector{shape: shapeGroup}
		for _, part := range splitOutsideBrackets(raw, ',') {
			if s := classify(part); s.shape != shapeUnsupported {
				g.group = append(g.group, s)
			}
		}
		if len(g.group) == 0 {
			g.shape = shapeUnsupported
		}
		return g
	}

	if strings.ContainsAny(outsideBrackets(raw), ">+~:") {
		return &selector{shape: shapeUnsupported}
	}

	fields := splitOutsideBrackets(raw, ' ')
	parts := make([]compound, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		c, ok := parseCompound(f)
		if !ok {
			return &selector{shape: shapeUnsupported}
		}
		parts = append(parts, c)
	}

	switch {
	case len(parts) == 0:
		return &selector{shape: shapeUnsupported}
	case len(parts) > 1:
		return &selector{shape: shapeDescendant, parts: parts}
	}

	c := parts[0]
	s := &selector{parts: parts}
	switch {
	case c.attr != nil:
		s.shape = shapeAttr
	case c.id != "":
		s.shape = shapeID
	case len(c.classes) > 0:
		s.shape = shapeClass
	case c.tag != "":
		s.shape = shapeTag
	default:
		s.shape = shapeUnsupported
	}
	return s
}

func parseCompound(s string) (compound, bool) {
	var c compound
	i := 0
	j := readIdent(s, i)
	if j > i {
		c.tag = strings.ToLower(s[i:j])
		if c.tag == "*" {
			c.tag = ""
		}
		i = j
	}

	for i < len(s) {
		switch s[i] {
		case '.':
			j = readIdent(s, i+1)
			if j == i+1 {
				return c, false
			}
			c.classes = append(c.classes, s[i+1:j])
			i = j
		case '#':
			j = readIdent(s, i+1)
			if j == i+1 {
				return c, false
			}
			c.id = s[i+1 : j]
			i = j
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 || c.attr != nil {
				return c, false
			}
			cond, ok := parseAttr(s[i+1 : i+end])
			if !ok {
				return c, false
			}
			c.attr = cond
			i += end + 1
		default:
			return c, false
		}
	}
	return c, true
}

func parseAttr(body string) (*attrCond, bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, false
	}
	for _, op := range []string{"^=", "$=", "*=", "~=", "="} {
		idx := strings.Index(body, op)
		if idx <= 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(body[:idx]))
		value := strings.TrimSpace(body[idx+len(op):])
		value = strings.Trim(value, `'"`)
		return &attrCond{name: name, op: op, value: value}, true
	}
	return &attrCond{name: strings.ToLower(body)}, true
}

func readIdent(s string, i int) int {
	for i < len(s) {
		ch := s[i]
		if ch == '-' || ch == '_' || ch == '*' ||
			(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			i++
			continue
		}
		break
	}
	return i
}

// outsideBrackets blanks out [...] sections so operator checks ignore attribute values.
func outsideBrackets(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitOutsideBrackets(s string, sep rune) []string {
	var (
		out   []string
		depth int
		last  int
	)
	for i, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case r == sep && depth == 0:
			out = append(out, s[last:i])
			last = i + 1
		}
	}
	return append(out, s[last:])
}
