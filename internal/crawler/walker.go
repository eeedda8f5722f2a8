package crawler

import (
	"context"
	"fmt"
	"sync"

	"github.com/Harvey-AU/property-crawler/internal/render"
	"github.com/Harvey-AU/property-crawler/internal/site"
	"github.com/Harvey-AU/property-crawler/internal/util"
	"github.com/rs/zerolog/log"
)

// Walker steps through the listing index pages on one long-lived page
type Walker struct {
	browser render.Browser
	index   site.IndexSelectors
	config  *Config
	pacer   *Pacer
	origin  string

	mu      sync.Mutex
	page    render.Page
	started bool
}

// NewWalker creates a walker for the configured search URL
func NewWalker(browser render.Browser, profile *site.Profile, config *Config, pacer *Pacer) (*Walker, error) {
	if profile == nil {
		profile = site.DefaultProfile()
	}
	origin, err := util.Origin(config.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create walker: %w", err)
	}
	return &Walker{
		browser: browser,
		index:   profile.Index,
		config:  config,
		pacer:   pacer,
		origin:  origin,
	}, nil
}

// ListPage loads index page number and returns its detail URLs and
// whether another page follows. target overrides the computed page URL
// (it is the next URL discovered on the previous page).
//
// The first page of a run gets a single attempt; a site that cannot be
// reached at the start is not worth retrying. Later pages get the
// configured attempts with randomized backoff. Exhaustion returns a
// *DiscoveryError.
func (w *Walker) ListPage(ctx context.Context, number int, target string) (*IndexPage, error) {
	if target == "" {
		target = util.PageURL(w.config.SearchURL, number)
	}

	w.mu.Lock()
	first := !w.started
	w.started = true
	w.mu.Unlock()

	policy := w.config.RetryPolicy()
	if first {
		policy.Attempts = 1
	}

	log.Info().
		Int("page", number).
		Str("url", target).
		Int("max_attempts", policy.Attempts).
		Msg("Loading index page")

	var doc *render.Document
	attempts, err := Retry(ctx, policy, func(attempt int) error {
		d, err := w.load(ctx, target)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return nil, &DiscoveryError{Page: number, URL: target, Attempts: attempts, Err: err}
	}

	result := &IndexPage{
		Number:     number,
		URL:        target,
		DetailURLs: w.detailURLs(doc),
	}

	if next, ok := doc.Find(render.CSS(w.index.NextPage)); ok {
		result.HasNext = true
		href, _ := next.Attr("href")
		result.NextURL = util.ResolveURL(w.origin, href)
		if result.NextURL == "" {
			result.NextURL = util.PageURL(w.config.SearchURL, number+1)
		}
	}

	log.Info().
		Int("page", number).
		Int("listings", len(result.DetailURLs)).
		Bool("has_next", result.HasNext).
		Msg("Index page loaded")

	return result, nil
}

// load navigates the index page to target and snapshots it
func (w *Walker) load(ctx context.Context, target string) (*render.Document, error) {
	if err := w.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	page, err := w.indexPage(ctx)
	if err != nil {
		return nil, err
	}

	if err := page.Navigate(ctx, target, w.config.RequestTimeout); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(ctx, w.config.RequestTimeout); err != nil {
		log.Debug().Err(err).Str("url", target).Msg("Index page load wait failed")
	}
	if err := page.ScrollToBottom(ctx); err != nil {
		log.Debug().Err(err).Str("url", target).Msg("Index page scroll failed")
	}
	if err := SleepContext(ctx, w.config.SettleDelay); err != nil {
		return nil, err
	}

	return page.Snapshot(ctx)
}

func (w *Walker) indexPage(ctx context.Context) (render.Page, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.page != nil {
		return w.page, nil
	}
	page, err := w.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open index page: %w", err)
	}
	w.page = page
	return page, nil
}

// detailURLs returns the absolute detail links of every listing entry,
// deduplicated in page order
func (w *Walker) detailURLs(doc *render.Document) []string {
	seen := make(map[string]bool)
	var urls []string

	for _, entry := range doc.FindAll(render.CSS(w.index.Listing)) {
		anchor, ok := entry.Find(render.CSS(w.index.DetailLink))
		if !ok {
			continue
		}
		href, ok := anchor.Attr("href")
		if !ok {
			continue
		}
		link := util.ResolveURL(w.origin, href)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		urls = append(urls, link)
	}

	return urls
}

// Close releases the index page
func (w *Walker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.page == nil {
		return nil
	}
	err := w.page.Close()
	w.page = nil
	return err
}
