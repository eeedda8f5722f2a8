package crawler

import (
	"errors"
	"fmt"
	"time"

	"github.com/Harvey-AU/property-crawler/internal/util"
)

// Configuration errors
var (
	ErrMissingSearchURL = errors.New("search URL is required")
	ErrInvalidMaxRecord = errors.New("max records must be positive")
	ErrInvalidAttempts  = errors.New("retry attempts must be at least 1")
	ErrInvalidDelay     = errors.New("delay range is invalid")
	ErrInvalidTimeout   = errors.New("timeouts must be positive")
)

// Config holds the configuration for a crawl run
type Config struct {
	SearchURL          string        // First index page; later pages add a page parameter
	MaxRecords         int           // Overall listing cap, counting records already on disk
	RequestTimeout     time.Duration // Per navigation timeout
	SettleDelay        time.Duration // Wait after scrolling to the bottom
	ElementTimeout     time.Duration // Bounded wait for late-rendered extraction targets
	RetryAttempts      int           // Attempts per detail URL and per index advance
	RetryMinDelay      time.Duration // Backoff range lower bound
	RetryMaxDelay      time.Duration // Backoff range upper bound
	PolitenessMinDelay time.Duration // Pause between listings, lower bound
	PolitenessMaxDelay time.Duration // Pause between listings, upper bound
	MinRequestInterval time.Duration // Floor between any two navigations
	UserAgent          string        // User agent string for requests
}

// DefaultConfig returns a Config instance with default values
func DefaultConfig() *Config {
	return &Config{
		SearchURL:          "https://nigeriapropertycentre.com/for-sale/lagos?selectedLoc=1&q=for-sale+lagos",
		MaxRecords:         5000,
		RequestTimeout:     90 * time.Second,
		SettleDelay:        5 * time.Second,
		ElementTimeout:     20 * time.Second,
		RetryAttempts:      3,
		RetryMinDelay:      2 * time.Second,
		RetryMaxDelay:      5 * time.Second,
		PolitenessMinDelay: 2 * time.Second,
		PolitenessMaxDelay: 5 * time.Second,
		MinRequestInterval: 1 * time.Second,
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Validate checks the values a run cannot start without
func (c *Config) Validate() error {
	if c.SearchURL == "" {
		return ErrMissingSearchURL
	}
	if _, err := util.Origin(c.SearchURL); err != nil {
		return fmt.Errorf("invalid search URL: %w", err)
	}
	if c.MaxRecords <= 0 {
		return ErrInvalidMaxRecord
	}
	if c.RetryAttempts < 1 {
		return ErrInvalidAttempts
	}
	if c.RequestTimeout <= 0 || c.ElementTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RetryMinDelay < 0 || c.RetryMaxDelay < c.RetryMinDelay {
		return fmt.Errorf("%w: retry %s..%s", ErrInvalidDelay, c.RetryMinDelay, c.RetryMaxDelay)
	}
	if c.PolitenessMinDelay < 0 || c.PolitenessMaxDelay < c.PolitenessMinDelay {
		return fmt.Errorf("%w: politeness %s..%s", ErrInvalidDelay, c.PolitenessMinDelay, c.PolitenessMaxDelay)
	}
	return nil
}

// RetryPolicy returns the backoff policy for detail fetches and index advances
func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: c.RetryAttempts,
		MinDelay: c.RetryMinDelay,
		MaxDelay: c.RetryMaxDelay,
	}
}
