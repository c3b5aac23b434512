package microdoc

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// breakingTags separate text runs when projecting an element to plain text.
var breakingTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true, "td": true,
	"th": true, "dt": true, "dd": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "table": true, "ul": true, "ol": true,
}

// Element is one matched element. Its text projection is computed on demand.
type Element struct {
	doc *Document
	n   *node

	textOnce sync.Once
	text     string
}

func (e *Element) Tag() string {
	return e.n.tag
}

// Attr returns the decoded attribute value and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.n.attrs[strings.ToLower(name)]
	return v, ok
}

// AttrOr returns the attribute value, or def when the attribute is absent or blank.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *Element) Href() string    { return e.AttrOr("href", "") }
func (e *Element) Src() string     { return e.AttrOr("src", "") }
func (e *Element) Title() string   { return e.AttrOr("title", "") }
func (e *Element) Class() string   { return e.AttrOr("class", "") }
func (e *Element) ID() string      { return e.AttrOr("id", "") }
func (e *Element) OnClick() string { return e.AttrOr("onclick", "") }

// HasClass reports whether class is one of the element's class tokens.
func (e *Element) HasClass(class string) bool {
	return containsToken(strings.Fields(e.n.attrs["class"]), class)
}

// InnerHTML returns the raw markup between the element's tags.
func (e *Element) InnerHTML() string {
	return e.doc.markup[e.n.innerStart:e.n.innerEnd]
}

// Text returns the element's inner text with tags stripped, entities decoded
// and whitespace collapsed.
func (e *Element) Text() string {
	e.textOnce.Do(func() {
		e.text = projectText(e.InnerHTML())
	})
	return e.text
}

// QuerySelectorAll runs selector against this element's descendants only.
func (e *Element) QuerySelectorAll(selector string) []*Element {
	e.doc.index()
	return e.doc.wrap(resolve(e.doc, classify(selector), e.n.innerStart, e.n.innerEnd))
}

// QuerySelector returns the first matching descendant, or nil.
func (e *Element) QuerySelector(selector string) *Element {
	all := e.QuerySelectorAll(selector)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

func projectText(markup string) string {
	if markup == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(markup))
	var (
		b       strings.Builder
		skipped int
	)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skipped == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case tag == "script" || tag == "style":
				if tt == html.StartTagToken {
					skipped++
				}
			case breakingTags[tag]:
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch tag := string(name); {
			case (tag == "script" || tag == "style") && skipped > 0:
				skipped--
			case breakingTags[tag]:
				b.WriteByte(' ')
			}
		}
	}
}
