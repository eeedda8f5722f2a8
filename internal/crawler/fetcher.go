package crawler

import (
	"context"

	"github.com/Harvey-AU/property-crawler/internal/extract"
	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/Harvey-AU/property-crawler/internal/render"
	"github.com/Harvey-AU/property-crawler/internal/util"
	"github.com/rs/zerolog/log"
)

// Fetcher loads one detail page in its own tab and extracts a record from it.
// It does not retry; callers wrap FetchRecord in Retry.
type Fetcher struct {
	browser     render.Browser
	extractor   *extract.Extractor
	waitTargets []render.Query
	config      *Config
	pacer       *Pacer
}

// NewFetcher creates a detail fetcher
func NewFetcher(browser render.Browser, extractor *extract.Extractor, waitTargets []render.Query, config *Config, pacer *Pacer) *Fetcher {
	return &Fetcher{
		browser:     browser,
		extractor:   extractor,
		waitTargets: waitTargets,
		config:      config,
		pacer:       pacer,
	}
}

// FetchRecord returns the record for url, or a *FetchError
func (f *Fetcher) FetchRecord(ctx context.Context, url string) (listing.PropertyRecord, error) {
	if err := f.pacer.Wait(ctx); err != nil {
		return listing.PropertyRecord{}, &FetchError{URL: url, Stage: StageNavigate, Err: err}
	}

	page, err := f.browser.NewPage(ctx)
	if err != nil {
		return listing.PropertyRecord{}, &FetchError{URL: url, Stage: StageOpen, Err: err}
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Debug().Err(err).Str("url", url).Msg("Failed to close detail page")
		}
	}()

	if err := page.Navigate(ctx, url, f.config.RequestTimeout); err != nil {
		return listing.PropertyRecord{}, &FetchError{URL: url, Stage: StageNavigate, Err: err}
	}
	if err := page.WaitLoad(ctx, f.config.RequestTimeout); err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Detail page load wait failed")
	}
	if err := page.ScrollToBottom(ctx); err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Detail page scroll failed")
	}
	if err := SleepContext(ctx, f.config.SettleDelay); err != nil {
		return listing.PropertyRecord{}, &FetchError{URL: url, Stage: StageNavigate, Err: err}
	}

	for _, q := range f.waitTargets {
		if err := page.WaitFor(ctx, q, f.config.ElementTimeout); err != nil {
			log.Debug().
				Err(err).
				Str("url", url).
				Str("target", q.String()).
				Msg("Extraction target did not appear")
		}
	}

	if final := page.URL(); util.IsSignificantRedirect(url, final) {
		log.Warn().
			Str("url", url).
			Str("final_url", final).
			Msg("Detail page redirected, listing may have been withdrawn")
	}

	doc, err := page.Snapshot(ctx)
	if err != nil {
		return listing.PropertyRecord{}, &FetchError{URL: url, Stage: StageSnapshot, Err: err}
	}

	return f.extractor.Extract(doc, url), nil
}
