// Package microdoc turns raw markup into a lightweight, query-able index.
//
// It is not a full HTML parser: the markup is tokenized once into a flat list
// of element offsets, and selector queries are answered by scanning that list
// with a strategy picked from the selector's shape. Unsupported selectors and
// unmatched queries return empty results, never errors.
package microdoc

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// memoLimit bounds the per-document selector cache; on overflow the cache is
// dropped wholesale.
const memoLimit = 128

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// node is one element located in the markup by byte offsets.
type node struct {
	tag        string
	attrs      map[string]string
	start      int
	innerStart int
	innerEnd   int
	end        int
}

// Document is an indexed markup string.
type Document struct {
	markup string

	indexOnce sync.Once
	nodes     []*node

	mu   sync.Mutex
	memo map[string][]*Element
}

// Parse wraps markup in a Document. Indexing happens lazily on first query.
func Parse(markup string) *Document {
	return &Document{
		markup: markup,
		memo:   make(map[string][]*Element),
	}
}

// Markup returns the raw markup the document was built from.
func (d *Document) Markup() string {
	return d.markup
}

// Len returns the markup length in bytes.
func (d *Document) Len() int {
	return len(d.markup)
}

// QuerySelector returns the first element matching selector, or nil.
func (d *Document) QuerySelector(selector string) *Element {
	all := d.QuerySelectorAll(selector)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// QuerySelectorAll returns every element matching selector in document order.
// Results are memoized for the lifetime of the document.
func (d *Document) QuerySelectorAll(selector string) []*Element {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil
	}

	d.mu.Lock()
	if cached, ok := d.memo[selector]; ok {
		d.mu.Unlock()
		return cached
	}
	d.mu.Unlock()

	d.index()
	found := d.wrap(resolve(d, classify(selector), 0, len(d.markup)))

	d.mu.Lock()
	if len(d.memo) >= memoLimit {
		d.memo = make(map[string][]*Element)
	}
	d.memo[selector] = found
	d.mu.Unlock()
	return found
}

// Text returns the tag-stripped, entity-decoded text of the whole document.
func (d *Document) Text() string {
	return projectText(d.markup)
}

func (d *Document) wrap(nodes []*node) []*Element {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Element, len(nodes))
	for i, n := range nodes {
		out[i] = &Element{doc: d, n: n}
	}
	return out
}

func (d *Document) index() {
	d.indexOnce.Do(func() {
		d.nodes = scan(d.markup)
	})
}

// scan tokenizes markup and records every element with its byte offsets.
// End tags close the nearest open element of the same name; anything opened
// above it is closed implicitly at the same position.
func scan(markup string) []*node {
	z := html.NewTokenizer(strings.NewReader(markup))
	var (
		nodes  []*node
		open   []*node
		offset int
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tokStart := offset
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			n := &node{
				tag:        string(name),
				start:      tokStart,
				innerStart: offset,
			}
			if hasAttr {
				n.attrs = make(map[string]string)
				for {
					key, val, more := z.TagAttr()
					k := strings.ToLower(string(key))
					if _, dup := n.attrs[k]; !dup {
						n.attrs[k] = string(val)
					}
					if !more {
						break
					}
				}
			}
			nodes = append(nodes, n)
			if tt == html.SelfClosingTagToken || voidTags[n.tag] {
				n.innerEnd, n.end = offset, offset
				continue
			}
			open = append(open, n)

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			for i := len(open) - 1; i >= 0; i-- {
				if open[i].tag != tag {
					continue
				}
				for _, unclosed := range open[i+1:] {
					unclosed.innerEnd, unclosed.end = tokStart, tokStart
				}
				open[i].innerEnd, open[i].end = tokStart, offset
				open = open[:i]
				break
			}
		}
	}

	for _, n := range open {
		n.innerEnd, n.end = len(markup), len(markup)
	}
	return nodes
}
