package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Harvey-AU/property-crawler/internal/render"
	"github.com/Harvey-AU/property-crawler/internal/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexMarkup(links []string, next string) string {
	body := ""
	for _, l := range links {
		body += fmt.Sprintf(`<div class="wp-block-content"><a href="%s"><h4 class="content-title">Listing</h4></a></div>`, l)
	}
	if next != "" {
		body += next
	}
	return `<html><body>` + body + `</body></html>`
}

func newWalker(t *testing.T, searchURL string, browser render.Browser) *Walker {
	t.Helper()
	cfg := testConfig(searchURL)
	w, err := NewWalker(browser, site.DefaultProfile(), cfg, NewPacer(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWalkerListPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/for-sale/lagos", r.URL.Path)
		assert.Equal(t, "lagos", r.URL.Query().Get("q"))
		w.Write([]byte(indexMarkup(
			[]string{"/for-sale/houses/1", "/for-sale/houses/2", "/for-sale/houses/1#photos"},
			`<a class="pagination-next" href="/for-sale/lagos?q=lagos&page=2">Next</a>`,
		)))
	}))
	defer ts.Close()

	walker := newWalker(t, ts.URL+"/for-sale/lagos?q=lagos", render.NewStaticBrowser(""))

	page, err := walker.ListPage(context.Background(), 1, "")
	require.NoError(t, err)

	assert.Equal(t, 1, page.Number)
	assert.Equal(t, ts.URL+"/for-sale/lagos?q=lagos", page.URL)
	assert.Equal(t, []string{
		ts.URL + "/for-sale/houses/1",
		ts.URL + "/for-sale/houses/2",
	}, page.DetailURLs, "absolute, deduplicated, in page order")
	assert.True(t, page.HasNext)
	assert.Equal(t, ts.URL+"/for-sale/lagos?q=lagos&page=2", page.NextURL)
}

func TestWalkerUsesPageParameterWhenNoTarget(t *testing.T) {
	var requested atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested.Store(r.URL.RawQuery)
		w.Write([]byte(indexMarkup([]string{"/for-sale/houses/9"}, "")))
	}))
	defer ts.Close()

	walker := newWalker(t, ts.URL+"/for-sale?q=lagos", render.NewStaticBrowser(""))

	page, err := walker.ListPage(context.Background(), 7, "")
	require.NoError(t, err)

	assert.Equal(t, "q=lagos&page=7", requested.Load())
	assert.False(t, page.HasNext, "no next control is terminal")
	assert.Empty(t, page.NextURL)
}

func TestWalkerNextControlWithoutHref(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexMarkup(nil, `<a rel="next">Next</a>`)))
	}))
	defer ts.Close()

	walker := newWalker(t, ts.URL+"/for-sale", render.NewStaticBrowser(""))

	page, err := walker.ListPage(context.Background(), 3, "")
	require.NoError(t, err)

	assert.Empty(t, page.DetailURLs)
	assert.True(t, page.HasNext)
	assert.Equal(t, ts.URL+"/for-sale?page=4", page.NextURL)
}

func TestWalkerFirstPageGetsSingleAttempt(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	walker := newWalker(t, ts.URL+"/for-sale", render.NewStaticBrowser(""))

	_, err := walker.ListPage(context.Background(), 1, "")
	require.Error(t, err)

	var discoveryErr *DiscoveryError
	require.True(t, errors.As(err, &discoveryErr))
	assert.Equal(t, 1, discoveryErr.Attempts)
	assert.Equal(t, 1, discoveryErr.Page)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestWalkerAdvanceRetries(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		// First request is page 1; the next two requests for page 2 fail
		if n == 2 || n == 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(indexMarkup([]string{"/for-sale/houses/1"}, "")))
	}))
	defer ts.Close()

	walker := newWalker(t, ts.URL+"/for-sale", render.NewStaticBrowser(""))

	_, err := walker.ListPage(context.Background(), 1, "")
	require.NoError(t, err)

	page, err := walker.ListPage(context.Background(), 2, "")
	require.NoError(t, err)
	assert.Equal(t, 2, page.Number)
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
}

func TestWalkerAdvanceExhaustion(t *testing.T) {
	browser := &fakeBrowser{markup: indexMarkup(nil, "")}
	walker := newWalker(t, "https://example.com/for-sale", browser)

	_, err := walker.ListPage(context.Background(), 1, "")
	require.NoError(t, err)

	browser.navErr = errors.New("navigation timeout")
	_, err = walker.ListPage(context.Background(), 2, "https://example.com/for-sale?page=2")

	var discoveryErr *DiscoveryError
	require.True(t, errors.As(err, &discoveryErr))
	assert.Equal(t, 3, discoveryErr.Attempts)
	assert.Equal(t, "https://example.com/for-sale?page=2", discoveryErr.URL)
	assert.Len(t, browser.navigated, 4)
	assert.Len(t, browser.pages, 1, "one long-lived index page")
}

func TestWalkerOpenFailure(t *testing.T) {
	browser := &fakeBrowser{openErr: errors.New("browser crashed")}
	walker := newWalker(t, "https://example.com/for-sale", browser)

	_, err := walker.ListPage(context.Background(), 1, "")

	var discoveryErr *DiscoveryError
	require.True(t, errors.As(err, &discoveryErr))
	assert.Contains(t, err.Error(), "browser crashed")
}

func TestNewWalkerRejectsRelativeSearchURL(t *testing.T) {
	cfg := testConfig("/for-sale")
	_, err := NewWalker(&fakeBrowser{}, nil, cfg, NewPacer(cfg))
	assert.Error(t, err)
}
