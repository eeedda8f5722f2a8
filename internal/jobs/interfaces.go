package jobs

import (
	"context"

	"github.com/Harvey-AU/property-crawler/internal/crawler"
	"github.com/Harvey-AU/property-crawler/internal/listing"
)

// IndexWalker lists the detail URLs of one index page
type IndexWalker interface {
	ListPage(ctx context.Context, number int, target string) (*crawler.IndexPage, error)
}

// RecordFetcher loads and extracts a single detail page
type RecordFetcher interface {
	FetchRecord(ctx context.Context, url string) (listing.PropertyRecord, error)
}

// Sink is the incremental dataset store
type Sink interface {
	Load(ctx context.Context) (int, error)
	Append(ctx context.Context, rec listing.PropertyRecord) error
	Flush(ctx context.Context) error
	Len() int
}

// Checkpoint remembers the last completed index page
type Checkpoint interface {
	Load(ctx context.Context) int
	Save(ctx context.Context, page int) error
}

// Mirror receives a copy of every collected record. Failures are logged only.
type Mirror interface {
	UpsertListing(ctx context.Context, runID string, rec listing.PropertyRecord) error
}

// Pacer spaces out consecutive listing fetches
type Pacer interface {
	Pause(ctx context.Context) error
}
