package main

import (
	"os"
	"strings"

	"github.com/Harvey-AU/property-crawler/internal/crawler"
	"github.com/rs/zerolog/log"
)

// Config holds the application configuration loaded from environment variables
type Config struct {
	Env                  string // Environment (development/production)
	SentryDSN            string // Sentry DSN for error tracking
	LogLevel             string // Log level (debug, info, warn, error)
	ObservabilityEnabled bool   // Toggle OpenTelemetry + Prometheus exporters
	MetricsAddr          string // Address for the metrics, status and health endpoints
	OTLPEndpoint         string // OTLP HTTP endpoint for trace export
	OTLPHeaders          string // Comma separated headers for OTLP exporter
	OTLPInsecure         bool   // Disable TLS verification for OTLP exporter

	OutputCSV      string   // Dataset file
	CheckpointFile string   // Last completed index page
	SiteProfile    string   // Optional YAML selector profile
	Renderer       string   // rod or static
	BrowserRemote  string   // DevTools WebSocket of an external Chrome
	Headless       bool     // Run local Chrome headless
	Stealth        bool     // Mask automation fingerprints
	BlockResources []string // Resource types dropped by the browser

	SlackWebhookURL string // Run summary destination
	SupabaseURL     string // Export destination
	SupabaseKey     string // Service role key for exports
	ExportBucket    string // Storage bucket for exports

	Crawl *crawler.Config
}

func loadConfig() *Config {
	return &Config{
		Env:                  getEnvWithDefault("APP_ENV", "development"),
		SentryDSN:            os.Getenv("SENTRY_DSN"),
		LogLevel:             getEnvWithDefault("LOG_LEVEL", "info"),
		ObservabilityEnabled: getEnvBool("OBSERVABILITY_ENABLED", true),
		MetricsAddr:          getEnvWithDefault("METRICS_ADDR", ":9464"),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPHeaders:          os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		OTLPInsecure:         getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),

		OutputCSV:      getEnvWithDefault("OUTPUT_CSV", "properties.csv"),
		CheckpointFile: getEnvWithDefault("CHECKPOINT_FILE", "last_page.txt"),
		SiteProfile:    os.Getenv("SITE_PROFILE"),
		Renderer:       strings.ToLower(getEnvWithDefault("RENDERER", "rod")),
		BrowserRemote:  os.Getenv("BROWSER_REMOTE_URL"),
		Headless:       getEnvBool("BROWSER_HEADLESS", true),
		Stealth:        getEnvBool("BROWSER_STEALTH", true),
		BlockResources: splitList(getEnvWithDefault("BLOCK_RESOURCES", "images,fonts,media")),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseKey:     os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		ExportBucket:    os.Getenv("EXPORT_BUCKET"),

		Crawl: crawler.ConfigFromEnv(),
	}
}

// getEnvWithDefault retrieves an environment variable or returns a default value if not set
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return defaultValue
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		log.Warn().Str("key", key).Bool("default", defaultValue).Msg("Invalid boolean in environment variable, using default")
		return defaultValue
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOTLPHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return headers
	}

	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(parts[1])
	}

	return headers
}
