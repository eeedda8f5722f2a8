package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Harvey-AU/property-crawler/internal/crawler"
	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/Harvey-AU/property-crawler/internal/observability"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
)

// RunnerConfig bounds a run
type RunnerConfig struct {
	MaxRecords int
	Retry      crawler.RetryPolicy
}

// Runner drives one crawl: index pages in order, detail pages in order,
// one record at a time into the sink
type Runner struct {
	config     RunnerConfig
	walker     IndexWalker
	fetcher    RecordFetcher
	sink       Sink
	checkpoint Checkpoint
	pacer      Pacer
	mirrors    []Mirror

	mu       sync.RWMutex
	progress Progress
}

// NewRunner creates a runner
func NewRunner(config RunnerConfig, walker IndexWalker, fetcher RecordFetcher, sink Sink, checkpoint Checkpoint, pacer Pacer) *Runner {
	return &Runner{
		config:     config,
		walker:     walker,
		fetcher:    fetcher,
		sink:       sink,
		checkpoint: checkpoint,
		pacer:      pacer,
	}
}

// AddMirror registers a secondary store for collected records
func (r *Runner) AddMirror(m Mirror) {
	if m != nil {
		r.mirrors = append(r.mirrors, m)
	}
}

// Progress returns a snapshot of the current run
func (r *Runner) Progress() Progress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.progress
}

func (r *Runner) update(fn func(p *Progress)) {
	r.mu.Lock()
	fn(&r.progress)
	r.mu.Unlock()
}

// Run crawls from the checkpointed page until the cap is reached, the index
// runs out, a page cannot be discovered or ctx is cancelled. The sink is
// flushed on every exit path; a failed final flush is the only error.
func (r *Runner) Run(ctx context.Context) (summary *Summary, err error) {
	started := time.Now()
	runID := uuid.New().String()

	span := sentry.StartSpan(ctx, "jobs.run")
	defer span.Finish()
	span.SetTag("run_id", runID)

	summary = &Summary{RunID: runID}

	defer func() {
		flushErr := r.sink.Flush(context.WithoutCancel(ctx))
		if flushErr != nil {
			log.Error().Err(flushErr).Str("run_id", runID).Msg("Final dataset flush failed")
			sentry.CaptureException(flushErr)
			summary.Err = flushErr.Error()
			err = fmt.Errorf("failed to flush dataset: %w", flushErr)
		}
		summary.Collected = r.sink.Len()
		summary.Duration = time.Since(started)

		r.update(func(p *Progress) {
			p.Running = false
			p.StopReason = summary.StopReason
			p.Cursor.Collected = summary.Collected
		})

		span.SetData("stop_reason", string(summary.StopReason))
		log.Info().
			Str("run_id", runID).
			Str("stop_reason", string(summary.StopReason)).
			Int("pages", summary.PagesCompleted).
			Int("fetched", summary.Fetched).
			Int("skipped", summary.Skipped).
			Int("records", summary.Collected).
			Dur("duration", summary.Duration).
			Msg("Crawl finished")
	}()

	if _, loadErr := r.sink.Load(ctx); loadErr != nil {
		log.Warn().Err(loadErr).Msg("Starting with an empty dataset")
	}

	cursor := Cursor{
		Page:      r.checkpoint.Load(ctx),
		Collected: r.sink.Len(),
	}
	summary.StartPage = cursor.Page

	r.update(func(p *Progress) {
		*p = Progress{RunID: runID, Running: true, StartedAt: started, Cursor: cursor}
	})

	log.Info().
		Str("run_id", runID).
		Int("page", cursor.Page).
		Int("records", cursor.Collected).
		Int("max_records", r.config.MaxRecords).
		Msg("Starting crawl")

	for {
		if ctx.Err() != nil {
			summary.StopReason = StopCancelled
			return summary, nil
		}
		if r.capReached() {
			summary.StopReason = StopCapReached
			return summary, nil
		}

		reason, index := r.runPage(ctx, runID, cursor, summary)
		if reason != "" {
			summary.StopReason = reason
			return summary, nil
		}

		if err := r.checkpoint.Save(ctx, cursor.Page); err != nil {
			log.Error().Err(err).Int("page", cursor.Page).Msg("Failed to save checkpoint")
		}
		summary.PagesCompleted++
		summary.LastPage = cursor.Page

		if !index.HasNext {
			summary.StopReason = StopNoNextPage
			return summary, nil
		}

		cursor = Cursor{Page: cursor.Page + 1, Collected: r.sink.Len(), NextURL: index.NextURL}
		r.update(func(p *Progress) { p.Cursor = cursor })
	}
}

// runPage processes every listing of one index page. A non-empty reason
// means the run stops before the page completes.
func (r *Runner) runPage(ctx context.Context, runID string, cursor Cursor, summary *Summary) (StopReason, *crawler.IndexPage) {
	pageCtx, pageSpan := observability.StartPageSpan(ctx, runID, cursor.Page, cursor.NextURL)
	defer pageSpan.End()

	index, err := r.walker.ListPage(pageCtx, cursor.Page, cursor.NextURL)
	if err != nil {
		pageSpan.RecordError(err)
		pageSpan.SetStatus(codes.Error, "discovery failed")
		observability.RecordPage(ctx, observability.PageMetrics{Status: "failed"})

		if ctx.Err() != nil {
			return StopCancelled, nil
		}

		var discoveryErr *crawler.DiscoveryError
		if errors.As(err, &discoveryErr) {
			log.Error().
				Err(discoveryErr.Err).
				Str("run_id", runID).
				Int("page", discoveryErr.Page).
				Str("url", discoveryErr.URL).
				Int("attempts", discoveryErr.Attempts).
				Msg("Index page could not be loaded, stopping")
		} else {
			log.Error().Err(err).Str("run_id", runID).Int("page", cursor.Page).Msg("Index page could not be loaded, stopping")
		}
		return StopDiscoveryFailed, nil
	}

	for i, url := range index.DetailURLs {
		if ctx.Err() != nil {
			return StopCancelled, nil
		}
		if r.capReached() {
			return StopCapReached, nil
		}

		r.collect(pageCtx, runID, cursor.Page, url, summary)
		if ctx.Err() != nil {
			return StopCancelled, nil
		}

		if i < len(index.DetailURLs)-1 {
			if err := r.pacer.Pause(ctx); err != nil {
				return StopCancelled, nil
			}
		}
	}

	observability.RecordPage(ctx, observability.PageMetrics{Status: "success", Listings: len(index.DetailURLs)})
	log.Info().
		Str("run_id", runID).
		Int("page", cursor.Page).
		Int("records", r.sink.Len()).
		Msg("Index page completed")

	return "", index
}

// collect fetches one listing with retries and stores it. Exhaustion skips
// the listing.
func (r *Runner) collect(ctx context.Context, runID string, page int, url string, summary *Summary) {
	start := time.Now()
	detailCtx, span := observability.StartDetailSpan(ctx, observability.DetailSpanInfo{RunID: runID, Page: page, URL: url})
	defer span.End()

	rec, attempts, err := fetchWithRetry(detailCtx, r.fetcher, r.config.Retry, url)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing skipped")
		observability.RecordDetailFetch(ctx, observability.DetailMetrics{Status: "skipped", Duration: time.Since(start)})

		summary.Skipped++
		r.update(func(p *Progress) { p.Skipped++ })

		log.Warn().
			Err(err).
			Str("run_id", runID).
			Int("page", page).
			Str("url", url).
			Int("attempts", attempts).
			Msg("Listing skipped after retries")
		return
	}

	observability.RecordDetailFetch(ctx, observability.DetailMetrics{Status: "success", Duration: time.Since(start)})
	summary.Fetched++
	r.update(func(p *Progress) { p.Fetched++ })

	if err := r.sink.Append(ctx, rec); err != nil {
		log.Error().Err(err).Str("url", url).Msg("Failed to persist listing, will retry on next write")
	}
	r.update(func(p *Progress) { p.Cursor.Collected = r.sink.Len() })

	for _, m := range r.mirrors {
		if err := m.UpsertListing(ctx, runID, rec); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("Failed to mirror listing")
		}
	}

	log.Info().
		Str("run_id", runID).
		Int("page", page).
		Str("url", url).
		Int("fields", rec.Resolved()).
		Int("records", r.sink.Len()).
		Msg("Listing collected")
}

func (r *Runner) capReached() bool {
	return r.config.MaxRecords > 0 && r.sink.Len() >= r.config.MaxRecords
}

func fetchWithRetry(ctx context.Context, fetcher RecordFetcher, policy crawler.RetryPolicy, url string) (listing.PropertyRecord, int, error) {
	var rec listing.PropertyRecord
	attempts, err := crawler.Retry(ctx, policy, func(attempt int) error {
		got, err := fetcher.FetchRecord(ctx, url)
		if err != nil {
			return err
		}
		rec = got
		return nil
	})
	return rec, attempts, err
}

// ScrapeOne fetches a single detail URL with the crawl's retry policy and
// appends the record to sink
func ScrapeOne(ctx context.Context, fetcher RecordFetcher, sink Sink, url string, policy crawler.RetryPolicy) (listing.PropertyRecord, error) {
	if _, err := sink.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Starting with an empty dataset")
	}

	rec, attempts, err := fetchWithRetry(ctx, fetcher, policy, url)
	if err != nil {
		return listing.PropertyRecord{}, fmt.Errorf("failed to scrape %s after %d attempt(s): %w", url, attempts, err)
	}

	if err := sink.Append(ctx, rec); err != nil {
		return rec, fmt.Errorf("failed to persist %s: %w", url, err)
	}

	log.Info().
		Str("url", url).
		Int("fields", rec.Resolved()).
		Int("records", sink.Len()).
		Msg("Listing scraped")

	return rec, nil
}
