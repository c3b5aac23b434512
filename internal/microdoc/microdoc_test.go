package microdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><head><title>Results &amp; more</title></head>
<body>
<div id="waterfall">
  <div class="item masonry-brick"><a class="movie-box" href="/IPX-156" title="IPX-156 first">
    <img src="/cover/ipx156.jpg"><span>IPX-156 <b>First</b></span></a></div>
  <div class="item"><a class="movie-box" href="/SSIS-001"><span>SSIS-001</span></a></div>
  <p>loose <a href="/page/2">next</a></p>
</div>
<ul class="tags"><li>Drama</li><li>Tag&nbsp;Two</li></ul>
<script>var x = "<a href='/fake'>";</script>
</body></html>`

func TestQuerySelectorShapes(t *testing.T) {
	doc := Parse(listingHTML)

	assert.Len(t, doc.QuerySelectorAll("a"), 3)
	assert.Len(t, doc.QuerySelectorAll(".movie-box"), 2)
	assert.Len(t, doc.QuerySelectorAll("div.item"), 2)
	assert.Len(t, doc.QuerySelectorAll(".item.masonry-brick"), 1)

	wf := doc.QuerySelector("#waterfall")
	require.NotNil(t, wf)
	assert.Equal(t, "div", wf.Tag())

	assert.Len(t, doc.QuerySelectorAll("a[href^='/IPX']"), 1)
	assert.Len(t, doc.QuerySelectorAll("a[title]"), 1)
	assert.Len(t, doc.QuerySelectorAll(`a[href*="SSIS"]`), 1)
	assert.Len(t, doc.QuerySelectorAll("a[href$='/2']"), 1)
	assert.Len(t, doc.QuerySelectorAll("a[href='/SSIS-001']"), 1)
}

func TestDescendantAndGroup(t *testing.T) {
	doc := Parse(listingHTML)

	links := doc.QuerySelectorAll("div.item a")
	require.Len(t, links, 2)
	assert.Equal(t, "/IPX-156", links[0].Href())
	assert.Equal(t, "/SSIS-001", links[1].Href())

	assert.Len(t, doc.QuerySelectorAll("#waterfall p a"), 1)

	group := doc.QuerySelectorAll("ul.tags li, p a")
	require.Len(t, group, 3)
	// document order, not group order
	assert.Equal(t, "next", group[0].Text())
	assert.Equal(t, "Drama", group[1].Text())
}

func TestUnsupportedSelectorsReturnEmpty(t *testing.T) {
	doc := Parse(listingHTML)
	for _, sel := range []string{"div > a", "a:first-child", "li + li", "", "   ", "[", "div..x"} {
		assert.Empty(t, doc.QuerySelectorAll(sel), sel)
		assert.Nil(t, doc.QuerySelector(sel), sel)
	}
	assert.Empty(t, doc.QuerySelectorAll(".does-not-exist"))
}

func TestTextProjection(t *testing.T) {
	doc := Parse(listingHTML)

	title := doc.QuerySelector("title")
	require.NotNil(t, title)
	assert.Equal(t, "Results & more", title.Text())

	first := doc.QuerySelector("a.movie-box")
	require.NotNil(t, first)
	assert.Equal(t, "IPX-156 First", first.Text())
	assert.Equal(t, "IPX-156 first", first.Title())
	assert.True(t, first.HasClass("movie-box"))
	assert.False(t, first.HasClass("movie"))

	tags := doc.QuerySelectorAll("ul.tags li")
	require.Len(t, tags, 2)
	assert.Equal(t, "Tag Two", tags[1].Text())

	assert.NotContains(t, doc.Text(), "fake")
}

func TestScopedQuery(t *testing.T) {
	doc := Parse(listingHTML)
	items := doc.QuerySelectorAll("div.item")
	require.Len(t, items, 2)

	img := items[0].QuerySelector("img")
	require.NotNil(t, img)
	assert.Equal(t, "/cover/ipx156.jpg", img.Src())
	assert.Nil(t, items[1].QuerySelector("img"))
	assert.Len(t, items[1].QuerySelectorAll("a"), 1)
}

func TestUnclosedMarkupIsTolerated(t *testing.T) {
	doc := Parse(`<div class="box"><a href="/x">one<div class="box"><a href="/y">two`)
	boxes := doc.QuerySelectorAll("div.box")
	require.Len(t, boxes, 2)
	assert.Len(t, boxes[0].QuerySelectorAll("a"), 2)
	assert.Equal(t, "two", boxes[1].Text())
}

func TestMemoIsBounded(t *testing.T) {
	doc := Parse(listingHTML)
	first := doc.QuerySelectorAll("a")
	again := doc.QuerySelectorAll("a")
	require.Len(t, again, 3)
	assert.Same(t, first[0], again[0])

	for i := 0; i < memoLimit+5; i++ {
		doc.QuerySelectorAll("a[data-n='" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + "']")
	}
	doc.mu.Lock()
	size := len(doc.memo)
	doc.mu.Unlock()
	assert.LessOrEqual(t, size, memoLimit)
}
