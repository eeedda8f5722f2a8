package extract

import (
	"testing"

	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/Harvey-AU/property-crawler/internal/render"
	"github.com/Harvey-AU/property-crawler/internal/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLink = "https://nigeriapropertycentre.com/for-sale/houses/lagos/lekki/123-duplex"

// detailPage lays out header, content lines and description on the
// structural paths of the default profile
func detailPage(header, lines, desc string) string {
	return `<html><body><div>` +
		`<div>` + header + `</div>` +
		`<div><section><div><div><div><div>` +
		`<div>gallery</div>` +
		`<div>` + lines +
		`<div></div><div></div><div></div>` +
		`<div><div><div><div><div><div>` + desc + `</div></div></div></div></div></div>` +
		`</div>` +
		`</div></div></div></div></section></div>` +
		`</div></body></html>`
}

const contentLinesFixture = `
<p>4 Bedroom Detached Duplex</p>
<p>Lekki Phase 1, Lagos</p>
<p>₦ 250,000,000</p>
<p>08012345678 Call Show Phone</p>
<p>1 of 15</p>
<p>Bedrooms 4</p>
<p>Bathrooms 5</p>
<p>Toilets 6</p>
<p>Parking Spaces 3</p>`

const structuralFixture = `
<h1 class="content-title">Structural Title</h1>
<address>Structural Address</address>
<span class="price">Price on request</span>
<span class="price">₦ 1,000</span>
<a href="tel:0700">Call 0700 Show Phone</a>
<span class="image-count">1 of 9</span>
<table class="specifications">
  <tr><td>Bedrooms</td><td>3</td></tr>
  <tr><td>Bathrooms</td><td>ask agent</td></tr>
</table>`

func parse(t *testing.T, markup string) *render.Document {
	t.Helper()
	doc, err := render.Parse(testLink, markup)
	require.NoError(t, err)
	return doc
}

func TestExtractStructuralFieldsWin(t *testing.T) {
	doc := parse(t, detailPage(structuralFixture, contentLinesFixture, "Spacious duplex with a pool."))

	rec := New(site.DefaultProfile()).Extract(doc, testLink)

	assert.Equal(t, testLink, rec.SourceLink)
	assert.Equal(t, "Structural Title", rec.Title)
	assert.Equal(t, "Structural Address", rec.Address)
	assert.Equal(t, "1000", rec.Price, "first price with a digit, normalised")
	assert.Equal(t, "0700", rec.Contact)
	assert.Equal(t, listing.CountOf(9), rec.PhotoCount)
	assert.Equal(t, "Spacious duplex with a pool.", rec.Description)

	assert.Equal(t, listing.CountOf(3), rec.Bedrooms, "details table beats content lines")
	assert.Equal(t, listing.CountOf(5), rec.Bathrooms, "digitless table cell left for content lines")
	assert.Equal(t, listing.CountOf(6), rec.Toilets)
	assert.Equal(t, listing.CountOf(3), rec.ParkingSpaces)
}

func TestExtractFallsBackToContentLines(t *testing.T) {
	doc := parse(t, detailPage("", contentLinesFixture, "Newly built."))

	rec := New(site.DefaultProfile()).Extract(doc, testLink)

	assert.Equal(t, "4 Bedroom Detached Duplex", rec.Title)
	assert.Equal(t, "Lekki Phase 1, Lagos", rec.Address)
	assert.Equal(t, "250000000", rec.Price)
	assert.Equal(t, "08012345678", rec.Contact)
	assert.Equal(t, listing.CountOf(15), rec.PhotoCount)
	assert.Equal(t, "Newly built.", rec.Description)
	assert.Equal(t, listing.CountOf(4), rec.Bedrooms)
	assert.Equal(t, listing.CountOf(5), rec.Bathrooms)
	assert.Equal(t, listing.CountOf(6), rec.Toilets)
	assert.Equal(t, listing.CountOf(3), rec.ParkingSpaces)
}

func TestExtractContentLinesLaterCountWins(t *testing.T) {
	lines := `<p>Bedrooms 2</p><p>Bedrooms 7</p>`
	doc := parse(t, detailPage("", lines, ""))

	rec := New(site.DefaultProfile()).Extract(doc, testLink)

	assert.Equal(t, listing.CountOf(7), rec.Bedrooms)
	assert.Equal(t, "Bedrooms 2", rec.Title, "first bedroom line is the title")
}

func TestExtractDescriptionFallback(t *testing.T) {
	header := `<div itemprop="description">Tagged description</div>`
	doc := parse(t, detailPage(header, "", "   "))

	rec := New(site.DefaultProfile()).Extract(doc, testLink)

	assert.Equal(t, "Tagged description", rec.Description)
}

func TestExtractContactFromMarketedBy(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{
			name:   "no_phone_link",
			header: `<span class="marketed-by">Acme Realty</span>`,
			want:   "Acme Realty",
		},
		{
			name:   "empty_phone_link",
			header: `<a href="tel:"></a><span class="marketed-by">Acme Realty</span>`,
			want:   "Acme Realty",
		},
		{
			name:   "phone_link_only_boilerplate",
			header: `<a href="tel:">Show Phone</a><span class="marketed-by">Acme Realty</span>`,
			want:   "Acme Realty",
		},
		{
			name:   "phone_link_wins",
			header: `<a href="tel:0803">Call 0803</a><span class="marketed-by">Acme Realty</span>`,
			want:   "0803",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, detailPage(tt.header, "", ""))

			rec := New(site.DefaultProfile()).Extract(doc, testLink)

			assert.Equal(t, tt.want, rec.Contact)
		})
	}
}

func TestExtractEmptyPageIsAllUnknown(t *testing.T) {
	doc := parse(t, `<html><body><p>Access denied</p></body></html>`)

	rec := New(site.DefaultProfile()).Extract(doc, testLink)

	want := listing.New(testLink)
	assert.Equal(t, want, rec)
	assert.Equal(t, 0, rec.Resolved())
}

func TestExtractNilDocument(t *testing.T) {
	rec := New(nil).Extract(nil, testLink)
	assert.Equal(t, listing.New(testLink), rec)
}

func TestExtractRecoversFromPanickingStrategy(t *testing.T) {
	doc := parse(t, `<html><body></body></html>`)

	e := NewWithStrategies(
		Strategy{Name: "broken", Apply: func(*render.Document) listing.PropertyRecord {
			panic("boom")
		}},
		Strategy{Name: "fixed", Apply: func(*render.Document) listing.PropertyRecord {
			rec := listing.New("")
			rec.Title = "Recovered"
			return rec
		}},
	)

	var rec listing.PropertyRecord
	require.NotPanics(t, func() {
		rec = e.Extract(doc, testLink)
	})
	assert.Equal(t, "Recovered", rec.Title)
	assert.Equal(t, []string{"broken", "fixed"}, e.Strategies())
}

func TestStrategiesOrder(t *testing.T) {
	e := New(site.DefaultProfile())
	assert.Equal(t, []string{"structural", "description", "content-lines"}, e.Strategies())
}

func TestPhotoCount(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		want    listing.Count
	}{
		{name: "caption", caption: "1 of 12", want: listing.CountOf(12)},
		{name: "trailing text", caption: "3 of 20 photos", want: listing.CountOf(20)},
		{name: "no of", caption: "12 photos", want: listing.Count{}},
		{name: "no digits", caption: "one of many", want: listing.Count{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, photoCount(tt.caption))
		})
	}
}

func TestWaitTargets(t *testing.T) {
	profile := site.DefaultProfile()
	targets := WaitTargets(profile)

	require.Len(t, targets, 2)
	assert.Equal(t, render.XPath(profile.Detail.DescriptionPath), targets[0])
	assert.Equal(t, render.XPath(profile.Detail.ContentPath), targets[1])
	assert.NotContains(t, targets, render.CSS(profile.Detail.DescriptionFallback), "fallback is read from the snapshot only")
}
