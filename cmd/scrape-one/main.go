package main

/**
 * Single listing scraper
 *
 * Fetches one detail page with the same browser, extractor and retry policy
 * as the full crawl and merges the record into the dataset file.
 *
 * Usage:
 *   go run ./cmd/scrape-one https://nigeriapropertycentre.com/for-sale/houses/...
 *
 * OUTPUT_CSV, SITE_PROFILE, RENDERER and BROWSER_REMOTE_URL are read from the
 * environment (.env.local, .env), as are the crawl settings shared with the
 * app: REQUEST_TIMEOUT, SETTLE_DELAY, ELEMENT_TIMEOUT, RETRY_ATTEMPTS,
 * RETRY_MIN_DELAY, RETRY_MAX_DELAY, MIN_REQUEST_INTERVAL and USER_AGENT.
 */

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Harvey-AU/property-crawler/internal/crawler"
	"github.com/Harvey-AU/property-crawler/internal/extract"
	"github.com/Harvey-AU/property-crawler/internal/jobs"
	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/Harvey-AU/property-crawler/internal/render"
	"github.com/Harvey-AU/property-crawler/internal/site"
	"github.com/Harvey-AU/property-crawler/internal/storage"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	godotenv.Load(".env.local", ".env")

	if len(os.Args) != 2 || strings.TrimSpace(os.Args[1]) == "" {
		log.Fatal().Msg("usage: scrape-one <detail-url>")
	}
	url := strings.TrimSpace(os.Args[1])

	cfg := crawler.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid crawl configuration")
	}

	profile, err := site.LoadProfile(os.Getenv("SITE_PROFILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load site profile")
	}

	var browser render.Browser
	if strings.EqualFold(os.Getenv("RENDERER"), "static") {
		browser = render.NewStaticBrowser(cfg.UserAgent)
	} else {
		rod, err := render.NewRodBrowser(render.RodConfig{
			RemoteURL:        os.Getenv("BROWSER_REMOTE_URL"),
			Headless:         true,
			Stealth:          true,
			ResourceBlocking: []string{"images", "fonts", "media"},
			UserAgent:        cfg.UserAgent,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start browser")
		}
		browser = rod
	}
	defer browser.Close()

	output := os.Getenv("OUTPUT_CSV")
	if output == "" {
		output = "properties.csv"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := crawler.NewFetcher(browser, extract.New(profile), extract.WaitTargets(profile), cfg, crawler.NewPacer(cfg))
	rec, err := jobs.ScrapeOne(ctx, fetcher, storage.NewCSVSink(output), url, cfg.RetryPolicy())
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Scrape failed")
		browser.Close()
		os.Exit(1)
	}

	fields := make(map[string]string, len(listing.Columns))
	for i, v := range rec.Row() {
		fields[listing.Columns[i]] = v
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(fields)
}
