package jobs

import (
	"time"
)

// StopReason records why a run ended
type StopReason string

const (
	StopCapReached      StopReason = "cap_reached"
	StopNoNextPage      StopReason = "no_next_page"
	StopDiscoveryFailed StopReason = "discovery_failed"
	StopCancelled       StopReason = "cancelled"
)

// Cursor is the position of a run in the listing index
type Cursor struct {
	// Page is the next index page to process
	Page int `json:"page"`
	// Collected is the number of records in the dataset
	Collected int `json:"collected"`
	// NextURL is the next index page discovered from the "next" control.
	// Empty before the first page.
	NextURL string `json:"next_url,omitempty"`
}

// Summary is the outcome of one run
type Summary struct {
	RunID          string        `json:"run_id"`
	StartPage      int           `json:"start_page"`
	LastPage       int           `json:"last_page"`
	PagesCompleted int           `json:"pages_completed"`
	Fetched        int           `json:"fetched"`
	Skipped        int           `json:"skipped"`
	Collected      int           `json:"collected"`
	StopReason     StopReason    `json:"stop_reason"`
	Duration       time.Duration `json:"duration"`
	Err            string        `json:"error,omitempty"`
}

// Progress is a point-in-time view of a running crawl
type Progress struct {
	RunID      string     `json:"run_id"`
	Running    bool       `json:"running"`
	StartedAt  time.Time  `json:"started_at"`
	Cursor     Cursor     `json:"cursor"`
	Fetched    int        `json:"fetched"`
	Skipped    int        `json:"skipped"`
	StopReason StopReason `json:"stop_reason,omitempty"`
}
