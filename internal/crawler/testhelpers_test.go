package crawler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Harvey-AU/property-crawler/internal/render"
)

// testConfig returns a config with every delay disabled so tests run instantly
func testConfig(searchURL string) *Config {
	cfg := DefaultConfig()
	cfg.SearchURL = searchURL
	cfg.RequestTimeout = 5 * time.Second
	cfg.SettleDelay = 0
	cfg.ElementTimeout = 100 * time.Millisecond
	cfg.RetryMinDelay = 0
	cfg.RetryMaxDelay = 0
	cfg.PolitenessMinDelay = 0
	cfg.PolitenessMaxDelay = 0
	cfg.MinRequestInterval = 0
	cfg.UserAgent = "PropertyCrawlerTest/1.0"
	return cfg
}

// fakeBrowser hands out fakePages, optionally failing NewPage
type fakeBrowser struct {
	mu        sync.Mutex
	openErr   error
	navErr    error
	markup    string
	pages     []*fakePage
	navigated []string
	waited    []render.Query
}

func (b *fakeBrowser) NewPage(ctx context.Context) (render.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	p := &fakePage{browser: b}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) Close() error { return nil }

func (b *fakeBrowser) closedPages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.pages {
		if p.closed {
			n++
		}
	}
	return n
}

type fakePage struct {
	browser *fakeBrowser
	url     string
	closed  bool
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	p.browser.navigated = append(p.browser.navigated, url)
	if p.browser.navErr != nil {
		return p.browser.navErr
	}
	p.url = url
	return nil
}

func (p *fakePage) WaitLoad(ctx context.Context, timeout time.Duration) error { return nil }

func (p *fakePage) ScrollToBottom(ctx context.Context) error { return nil }

func (p *fakePage) WaitFor(ctx context.Context, q render.Query, timeout time.Duration) error {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	p.browser.waited = append(p.browser.waited, q)
	return render.ErrNotFound
}

func (p *fakePage) Snapshot(ctx context.Context) (*render.Document, error) {
	if p.url == "" {
		return nil, errors.New("nothing loaded")
	}
	return render.Parse(p.url, p.browser.markup)
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Close() error {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	p.closed = true
	return nil
}
