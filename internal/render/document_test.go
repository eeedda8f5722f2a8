package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head><title>t</title><style>.x{}</style></head>
<body>
  <div id="main">
    <h1 class="content-title">5 Bedroom
      Duplex</h1>
    <address>Lekki Phase 1, Lagos</address>
    <p>Line one<br>Line two</p>
    <script>var hidden = "nope";</script>
    <table class="specs">
      <tr><td>Bedrooms</td><td>5</td></tr>
      <tr><td>Toilets</td><td>6</td></tr>
    </table>
    <a href="/detail/1" data-id="1"><h4 class="content-title">Listing</h4></a>
  </div>
</body>
</html>`

func parseSample(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse("https://example.com/page", sampleHTML)
	require.NoError(t, err)
	return doc
}

func TestDocumentFindCSS(t *testing.T) {
	doc := parseSample(t)

	el, ok := doc.Find(CSS("h1.content-title, h4.content-title"))
	require.True(t, ok)
	assert.Equal(t, "5 Bedroom Duplex", el.Text(), "whitespace collapsed")

	_, ok = doc.Find(CSS("span.price"))
	assert.False(t, ok)

	assert.Equal(t, "https://example.com/page", doc.URL())
}

func TestDocumentFindXPath(t *testing.T) {
	doc := parseSample(t)

	el, ok := doc.Find(XPath("/html/body/div[1]/address"))
	require.True(t, ok)
	assert.Equal(t, "Lekki Phase 1, Lagos", el.Text())

	_, ok = doc.Find(XPath("/html/body/div[2]"))
	assert.False(t, ok)
}

func TestDocumentInvalidExpressionsAreNotFound(t *testing.T) {
	doc := parseSample(t)

	_, ok := doc.Find(XPath("/html/body/div[["))
	assert.False(t, ok)
	assert.Empty(t, doc.FindAll(XPath("///[")))

	_, ok = doc.Find(CSS("div[["))
	assert.False(t, ok)

	_, ok = doc.Find(CSS(""))
	assert.False(t, ok)
}

func TestElementTextBreaksBlocksAndSkipsScripts(t *testing.T) {
	doc := parseSample(t)

	main, ok := doc.Find(CSS("#main"))
	require.True(t, ok)

	text := main.Text()
	assert.Contains(t, text, "Line one\nLine two")
	assert.Contains(t, text, "Bedrooms 5")
	assert.Contains(t, text, "Toilets 6")
	assert.NotContains(t, text, "nope")
}

func TestElementScopedQueriesAndAttributes(t *testing.T) {
	doc := parseSample(t)

	rows := doc.FindAll(CSS("table.specs tr"))
	require.Len(t, rows, 2)

	cells := rows[1].FindAll(CSS("td"))
	require.Len(t, cells, 2)
	assert.Equal(t, "Toilets", cells[0].Text())
	assert.Equal(t, "6", cells[1].Text())

	anchor, ok := doc.Find(CSS("a:has(h4.content-title)"))
	require.True(t, ok)
	href, ok := anchor.Attr("href")
	assert.True(t, ok)
	assert.Equal(t, "/detail/1", href)

	_, ok = anchor.Attr("rel")
	assert.False(t, ok)

	_, ok = Element{}.Attr("href")
	assert.False(t, ok)
	assert.Equal(t, "", Element{}.Text())
}

func TestQueryString(t *testing.T) {
	assert.Equal(t, "span.price", CSS("span.price").String())
	assert.Equal(t, "xpath=/html/body", XPath("/html/body").String())
}
