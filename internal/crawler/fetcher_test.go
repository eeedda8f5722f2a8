package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harvey-AU/property-crawler/internal/extract"
	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/Harvey-AU/property-crawler/internal/render"
	"github.com/Harvey-AU/property-crawler/internal/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailMarkup = `<html><body>
<h1 class="content-title">3 Bedroom Flat</h1>
<address>Ikoyi, Lagos</address>
<span class="price">₦ 95,000,000</span>
<a href="tel:08011112222">Call 08011112222</a>
<span class="image-count">1 of 4</span>
<table class="specifications">
  <tr><td>Bedrooms</td><td>3</td></tr>
  <tr><td>Bathrooms</td><td>3</td></tr>
  <tr><td>Toilets</td><td>4</td></tr>
  <tr><td>Parking Spaces</td><td>2</td></tr>
</table>
<div itemprop="description">Serviced flat with a gym.</div>
</body></html>`

func newFetcher(browser render.Browser) *Fetcher {
	profile := site.DefaultProfile()
	cfg := testConfig("https://example.com/for-sale")
	return NewFetcher(browser, extract.New(profile), extract.WaitTargets(profile), cfg, NewPacer(cfg))
}

func TestFetchRecord(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailMarkup))
	}))
	defer ts.Close()

	link := ts.URL + "/for-sale/flats/42"
	rec, err := newFetcher(render.NewStaticBrowser("")).FetchRecord(context.Background(), link)
	require.NoError(t, err)

	assert.Equal(t, link, rec.SourceLink)
	assert.Equal(t, "3 Bedroom Flat", rec.Title)
	assert.Equal(t, "Ikoyi, Lagos", rec.Address)
	assert.Equal(t, "95000000", rec.Price)
	assert.Equal(t, "08011112222", rec.Contact)
	assert.Equal(t, "Serviced flat with a gym.", rec.Description)
	assert.Equal(t, listing.CountOf(4), rec.PhotoCount)
	assert.Equal(t, listing.CountOf(3), rec.Bedrooms)
	assert.Equal(t, listing.CountOf(3), rec.Bathrooms)
	assert.Equal(t, listing.CountOf(4), rec.Toilets)
	assert.Equal(t, listing.CountOf(2), rec.ParkingSpaces)
}

func TestFetchRecordDoesNotWaitOnDescriptionFallback(t *testing.T) {
	profile := site.DefaultProfile()
	browser := &fakeBrowser{markup: detailMarkup}

	rec, err := newFetcher(browser).FetchRecord(context.Background(), "https://example.com/for-sale/flats/42")
	require.NoError(t, err)

	assert.Equal(t, "Serviced flat with a gym.", rec.Description, "fallback still read from the snapshot")
	assert.Equal(t, []render.Query{
		render.XPath(profile.Detail.DescriptionPath),
		render.XPath(profile.Detail.ContentPath),
	}, browser.waited)
	assert.NotContains(t, browser.waited, render.CSS(profile.Detail.DescriptionFallback))
}

func TestFetchRecordNavigateFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	_, err := newFetcher(render.NewStaticBrowser("")).FetchRecord(context.Background(), ts.URL+"/gone")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, StageNavigate, fetchErr.Stage)
	assert.Equal(t, ts.URL+"/gone", fetchErr.URL)
}

func TestFetchRecordStages(t *testing.T) {
	tests := []struct {
		name      string
		browser   *fakeBrowser
		wantStage string
		wantPages int
	}{
		{
			name:      "open",
			browser:   &fakeBrowser{openErr: errors.New("too many tabs")},
			wantStage: StageOpen,
			wantPages: 0,
		},
		{
			name:      "navigate",
			browser:   &fakeBrowser{navErr: errors.New("timeout")},
			wantStage: StageNavigate,
			wantPages: 1,
		},
		{
			name:      "blank_page_still_yields_record",
			browser:   &fakeBrowser{markup: ""},
			wantStage: "",
			wantPages: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFetcher(tt.browser).FetchRecord(context.Background(), "https://example.com/listing/1")

			if tt.wantStage == "" {
				assert.NoError(t, err)
			} else {
				var fetchErr *FetchError
				require.True(t, errors.As(err, &fetchErr))
				assert.Equal(t, tt.wantStage, fetchErr.Stage)
			}
			assert.Len(t, tt.browser.pages, tt.wantPages)
			assert.Equal(t, tt.wantPages, tt.browser.closedPages(), "page closed on every path")
		})
	}
}

func TestFetchRecordCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFetcher(&fakeBrowser{}).FetchRecord(ctx, "https://example.com/listing/1")
	assert.ErrorIs(t, err, context.Canceled)
}
