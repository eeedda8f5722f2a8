package crawler

import (
	"fmt"
)

// IndexPage is one listing index page as discovered by the walker
type IndexPage struct {
	Number     int      `json:"number"`
	URL        string   `json:"url"`
	DetailURLs []string `json:"detail_urls"`
	HasNext    bool     `json:"has_next"`
	NextURL    string   `json:"next_url,omitempty"`
}

// Fetch stages
const (
	StageOpen     = "open"
	StageNavigate = "navigate"
	StageSnapshot = "snapshot"
)

// FetchError is a failed attempt to load one detail page
type FetchError struct {
	URL   string
	Stage string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed at %s: %v", e.URL, e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DiscoveryError means an index page could not be loaded within its attempts.
// The run stops cleanly when it sees one.
type DiscoveryError struct {
	Page     int
	URL      string
	Attempts int
	Err      error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("index page %d (%s) failed after %d attempt(s): %v", e.Page, e.URL, e.Attempts, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
