package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Harvey-AU/property-crawler/internal/crawler"
	"github.com/Harvey-AU/property-crawler/internal/db"
	"github.com/Harvey-AU/property-crawler/internal/extract"
	"github.com/Harvey-AU/property-crawler/internal/jobs"
	"github.com/Harvey-AU/property-crawler/internal/notifications"
	"github.com/Harvey-AU/property-crawler/internal/observability"
	"github.com/Harvey-AU/property-crawler/internal/render"
	"github.com/Harvey-AU/property-crawler/internal/site"
	"github.com/Harvey-AU/property-crawler/internal/storage"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env files - .env.local takes priority for development
	godotenv.Load(".env.local", ".env")

	config := loadConfig()
	setupLogging(config)

	os.Exit(run(config))
}

func run(config *Config) int {
	// Initialise Sentry for error tracking and performance monitoring
	if config.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.SentryDSN,
			Environment: config.Env,
			TracesSampleRate: func() float64 {
				if config.Env == "production" {
					return 0.1
				}
				return 1.0
			}(),
			AttachStacktrace: true,
			Debug:            config.Env == "development",
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialise Sentry")
		} else {
			log.Info().Str("environment", config.Env).Msg("Sentry initialised successfully")
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Warn().Msg("Sentry DSN not configured, error tracking disabled")
	}

	if err := config.Crawl.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid crawl configuration")
		return 1
	}

	var obsProviders *observability.Providers
	if config.ObservabilityEnabled {
		var err error
		obsProviders, err = observability.Init(context.Background(), observability.Config{
			Enabled:        true,
			ServiceName:    "property-crawler",
			Environment:    config.Env,
			OTLPEndpoint:   strings.TrimSpace(config.OTLPEndpoint),
			OTLPHeaders:    parseOTLPHeaders(config.OTLPHeaders),
			OTLPInsecure:   config.OTLPInsecure,
			MetricsAddress: config.MetricsAddr,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialise observability providers")
			obsProviders = nil
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := obsProviders.Shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Failed to flush telemetry providers cleanly")
				}
			}()
		}
	}

	profile, err := site.LoadProfile(config.SiteProfile)
	if err != nil {
		sentry.CaptureException(err)
		log.Error().Err(err).Msg("Failed to load site profile")
		return 1
	}

	browser, err := newBrowser(config)
	if err != nil {
		sentry.CaptureException(err)
		log.Error().Err(err).Str("renderer", config.Renderer).Msg("Failed to start browser")
		return 1
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close browser")
		}
	}()

	pacer := crawler.NewPacer(config.Crawl)
	walker, err := crawler.NewWalker(browser, profile, config.Crawl, pacer)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create index walker")
		return 1
	}
	defer walker.Close()

	fetcher := crawler.NewFetcher(browser, extract.New(profile), extract.WaitTargets(profile), config.Crawl, pacer)
	sink := storage.NewCSVSink(config.OutputCSV)
	checkpoint := storage.NewFileCheckpoint(config.CheckpointFile)

	runner := jobs.NewRunner(
		jobs.RunnerConfig{MaxRecords: config.Crawl.MaxRecords, Retry: config.Crawl.RetryPolicy()},
		walker, fetcher, sink, checkpoint, pacer,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if os.Getenv("DATABASE_URL") != "" {
		pgDB, err := db.InitFromEnvWithRetry(ctx)
		if err != nil {
			sentry.CaptureException(err)
			log.Warn().Err(err).Msg("PostgreSQL mirror unavailable, continuing with CSV only")
		} else {
			defer pgDB.Close()
			runner.AddMirror(pgDB)
		}
	}

	server := &http.Server{
		Addr:              config.MetricsAddr,
		Handler:           newServerMux(runner.Progress, obsProviders),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var summary *jobs.Summary
	crawlDone := make(chan struct{})
	g := new(errgroup.Group)

	g.Go(func() error {
		defer close(crawlDone)
		var err error
		summary, err = runCrawl(ctx, runner, sink)
		return err
	})

	g.Go(func() error {
		go func() {
			<-crawlDone
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Graceful shutdown of status server failed")
			}
		}()

		log.Info().Str("addr", config.MetricsAddr).Msg("Status server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			log.Error().Err(err).Msg("Status server failed")
		}
		return nil
	})

	crawlErr := g.Wait()

	finishCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if summary != nil {
		notifier := notifications.NewSlackNotifier(config.SlackWebhookURL, sourceHost(config.Crawl.SearchURL))
		_ = notifier.NotifyRunComplete(finishCtx, summary)

		exporter := storage.NewExporter(config.SupabaseURL, config.SupabaseKey, config.ExportBucket)
		if _, err := exporter.ExportFile(finishCtx, sink.Path(), "runs/"+summary.RunID); err != nil {
			sentry.CaptureException(err)
			log.Error().Err(err).Msg("Failed to export dataset")
		}
	}

	if crawlErr != nil {
		log.Error().Err(crawlErr).Msg("Crawl ended with an error")
		return 1
	}
	return 0
}

// runCrawl runs the crawl and makes sure the dataset reaches disk even if
// the crawl panics
func runCrawl(ctx context.Context, runner *jobs.Runner, sink *storage.CSVSink) (summary *jobs.Summary, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			sentry.CurrentHub().Recover(rec)
			log.Error().Interface("panic", rec).Msg("Crawl panicked, flushing dataset")

			if flushErr := sink.Flush(context.Background()); flushErr != nil {
				log.Error().Err(flushErr).Msg("Flush after panic failed")
			}
			err = fmt.Errorf("crawl panicked: %v", rec)
		}
	}()

	return runner.Run(ctx)
}

func newBrowser(config *Config) (render.Browser, error) {
	switch config.Renderer {
	case "static":
		return render.NewStaticBrowser(config.Crawl.UserAgent), nil
	case "rod", "":
		return render.NewRodBrowser(render.RodConfig{
			RemoteURL:        config.BrowserRemote,
			Headless:         config.Headless,
			Stealth:          config.Stealth,
			ResourceBlocking: config.BlockResources,
			UserAgent:        config.Crawl.UserAgent,
		})
	default:
		return nil, fmt.Errorf("unknown renderer %q", config.Renderer)
	}
}

func sourceHost(searchURL string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(searchURL, "https://"), "http://")
	if i := strings.IndexAny(host, "/?"); i >= 0 {
		host = host[:i]
	}
	return host
}

// setupLogging configures the logging system
func setupLogging(config *Config) {
	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Use console writer in development
	if config.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Str("service", "property-crawler").
			Logger()
	}
}
