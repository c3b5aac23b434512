package microdoc

import "strings"

// strategyFunc answers one selector shape over the nodes inside [lo, hi).
type strategyFunc func(d *Document, sel *selector, lo, hi int) []*node

var strategies map[shape]strategyFunc

func init() {
	strategies = map[shape]strategyFunc{
		shapeTag:        byTag,
		shapeClass:      byClass,
		shapeID:         byID,
		shapeAttr:       byAttr,
		shapeDescendant: byDescendant,
		shapeGroup:      byGroup,
	}
}

func resolve(d *Document, sel *selector, lo, hi int) []*node {
	fn, ok := strategies[sel.shape]
	if !ok {
		return nil
	}
	return fn(d, sel, lo, hi)
}

func within(n *node, lo, hi int) bool {
	return n.start >= lo && n.end <= hi
}

func byTag(d *Document, sel *selector, lo, hi int) []*node {
	tag := sel.parts[0].tag
	var out []*node
	for _, n := range d.nodes {
		if n.tag == tag && within(n, lo, hi) {
			out = append(out, n)
		}
	}
	return out
}

func byClass(d *Document, sel *selector, lo, hi int) []*node {
	c := sel.parts[0]
	var out []*node
	for _, n := range d.nodes {
		if _, ok := n.attrs["class"]; !ok {
			continue
		}
		if within(n, lo, hi) && matches(n, c) {
			out = append(out, n)
		}
	}
	return out
}

func byID(d *Document, sel *selector, lo, hi int) []*node {
	c := sel.parts[0]
	for _, n := range d.nodes {
		if n.attrs["id"] == c.id && within(n, lo, hi) && matches(n, c) {
			return []*node{n}
		}
	}
	return nil
}

func byAttr(d *Document, sel *selector, lo, hi int) []*node {
	c := sel.parts[0]
	var out []*node
	for _, n := range d.nodes {
		if _, ok := n.attrs[c.attr.name]; !ok {
			continue
		}
		if within(n, lo, hi) && matches(n, c) {
			out = append(out, n)
		}
	}
	return out
}

// byDescendant narrows a chain of compounds: each step keeps the nodes that
// sit inside any node kept by the previous step.
func byDescendant(d *Document, sel *selector, lo, hi int) []*node {
	var scope []*node
	for _, n := range d.nodes {
		if within(n, lo, hi) && matches(n, sel.parts[0]) {
			scope = append(scope, n)
		}
	}
	for _, part := range sel.parts[1:] {
		if len(scope) == 0 {
			return nil
		}
		var next []*node
		for _, n := range d.nodes {
			if !matches(n, part) {
				continue
			}
			for _, s := range scope {
				if n != s && within(n, s.innerStart, s.innerEnd) {
					next = append(next, n)
					break
				}
			}
		}
		scope = next
	}
	return scope
}

func byGroup(d *Document, sel *selector, lo, hi int) []*node {
	seen := make(map[*node]bool)
	for _, g := range sel.group {
		for _, n := range resolve(d, g, lo, hi) {
			seen[n] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]*node, 0, len(seen))
	for _, n := range d.nodes {
		if seen[n] {
			out = append(out, n)
		}
	}
	return out
}

func matches(n *node, c compound) bool {
	if c.tag != "" && n.tag != c.tag {
		return false
	}
	if c.id != "" && n.attrs["id"] != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(n.attrs["class"])
		for _, want := range c.classes {
			if !containsToken(have, want) {
				return false
			}
		}
	}
	if c.attr != nil {
		v, ok := n.attrs[c.attr.name]
		if !ok {
			return false
		}
		switch c.attr.op {
		case "=":
			return v == c.attr.value
		case "^=":
			return c.attr.value != "" && strings.HasPrefix(v, c.attr.value)
		case "$=":
			return c.attr.value != "" && strings.HasSuffix(v, c.attr.value)
		case "*=":
			return c.attr.value != "" && strings.Contains(v, c.attr.value)
		case "~=":
			return containsToken(strings.Fields(v), c.attr.value)
		}
	}
	return true
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}
