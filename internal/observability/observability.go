package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls observability initialisation.
type Config struct {
	Enabled        bool
	ServiceName    string
	Environment    string
	OTLPEndpoint   string
	OTLPHeaders    map[string]string
	OTLPInsecure   bool
	MetricsAddress string
}

// Providers exposes configured telemetry providers.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Propagator     propagation.TextMapPropagator
	MetricsHandler http.Handler
	Shutdown       func(ctx context.Context) error
	Config         Config
}

var (
	initOnce sync.Once

	crawlTracer trace.Tracer

	detailDuration metric.Float64Histogram
	detailTotal    metric.Int64Counter
	pageTotal      metric.Int64Counter
	pageListings   metric.Int64Histogram
)

const instrumentationName = "property-crawler/crawl"

// Init sets up the global tracer and meter providers and the crawl
// instruments. Disabled config returns nil providers.
func Init(ctx context.Context, cfg Config) (*Providers, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "property-crawler"
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(traceOptions(ctx, cfg, res)...)
	otel.SetTracerProvider(tracerProvider)

	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prop)

	registry, meterProvider, err := newMeterProvider(res)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}
	otel.SetMeterProvider(meterProvider)

	initOnce.Do(func() {
		crawlTracer = tracerProvider.Tracer(instrumentationName)
		if err := initCrawlInstruments(meterProvider); err != nil {
			log.Warn().Err(err).Msg("Failed to create crawl instruments")
		}
	})

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		var allErr error
		if err := meterProvider.Shutdown(ctx); err != nil {
			allErr = errors.Join(allErr, fmt.Errorf("metric provider shutdown: %w", err))
		}
		if err := tracerProvider.Shutdown(ctx); err != nil {
			allErr = errors.Join(allErr, fmt.Errorf("trace provider shutdown: %w", err))
		}
		return allErr
	}

	return &Providers{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Propagator:     prop,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Shutdown:       shutdown,
		Config:         cfg,
	}, nil
}

// traceOptions exports spans over OTLP when an endpoint is set. An exporter
// that cannot be created leaves tracing local.
func traceOptions(ctx context.Context, cfg Config, res *resource.Resource) []sdktrace.TracerProviderOption {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.OTLPEndpoint == "" {
		return opts
	}

	clientOpts := []otlptracehttp.Option{getOTLPEndpointOption(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
	}
	if len(cfg.OTLPHeaders) > 0 {
		clientOpts = append(clientOpts, otlptracehttp.WithHeaders(cfg.OTLPHeaders))
	}

	exp, err := otlptracehttp.New(ctx, clientOpts...)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", cfg.OTLPEndpoint).Msg("Failed to create OTLP trace exporter, traces stay local")
		return opts
	}

	log.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("OTLP trace exporter initialised")
	return append(opts, sdktrace.WithBatcher(exp))
}

// newMeterProvider wires OTel metrics into a private Prometheus registry
// that also carries the process and Go runtime collectors
func newMeterProvider(res *resource.Resource) (*prometheus.Registry, *sdkmetric.MeterProvider, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create Prometheus exporter: %w", err)
	}

	return registry, sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	), nil
}

func getOTLPEndpointOption(endpoint string) otlptracehttp.Option {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return otlptracehttp.WithEndpointURL(endpoint)
	}
	return otlptracehttp.WithEndpoint(endpoint)
}

// WrapHandler applies OpenTelemetry instrumentation to an http.Handler when the providers are active.
func WrapHandler(handler http.Handler, prov *Providers) http.Handler {
	if prov == nil || prov.TracerProvider == nil {
		return handler
	}

	options := []otelhttp.Option{
		otelhttp.WithTracerProvider(prov.TracerProvider),
		otelhttp.WithPropagators(prov.Propagator),
		otelhttp.WithMeterProvider(prov.MeterProvider),
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}

	return otelhttp.NewHandler(handler, "http.server", options...)
}

func initCrawlInstruments(meterProvider metric.MeterProvider) error {
	if meterProvider == nil {
		return nil
	}

	meter := meterProvider.Meter(instrumentationName)

	var err error
	detailDuration, err = meter.Float64Histogram(
		"crawl.detail.duration_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("Time taken to fetch and extract one listing, retries included"),
	)
	if err != nil {
		return err
	}

	detailTotal, err = meter.Int64Counter(
		"crawl.detail.total",
		metric.WithDescription("Counts listing outcomes: success or skipped"),
	)
	if err != nil {
		return err
	}

	pageTotal, err = meter.Int64Counter(
		"crawl.page.total",
		metric.WithDescription("Counts index page outcomes"),
	)
	if err != nil {
		return err
	}

	pageListings, err = meter.Int64Histogram(
		"crawl.page.listings",
		metric.WithDescription("Listings found on each completed index page"),
		metric.WithExplicitBucketBoundaries(0, 5, 10, 20, 30, 50),
	)
	return err
}

// DetailSpanInfo describes a listing fetch
type DetailSpanInfo struct {
	RunID string
	Page  int
	URL   string
}

// DetailMetrics describes a processed listing for metric recording.
type DetailMetrics struct {
	Status   string
	Duration time.Duration
}

// PageMetrics describes a processed index page for metric recording.
type PageMetrics struct {
	Status   string
	Listings int
}

func tracer() trace.Tracer {
	if crawlTracer != nil {
		return crawlTracer
	}
	return otel.Tracer(instrumentationName)
}

// StartDetailSpan starts a span for one listing, covering every attempt.
func StartDetailSpan(ctx context.Context, info DetailSpanInfo) (context.Context, trace.Span) {
	return tracer().Start(ctx, "crawl.fetch_detail", trace.WithAttributes(
		attribute.String("run.id", info.RunID),
		attribute.Int("index.page", info.Page),
		attribute.String("listing.url", info.URL),
	))
}

// StartPageSpan starts a span for one index page and its listings.
func StartPageSpan(ctx context.Context, runID string, page int, url string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "crawl.index_page", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("index.page", page),
		attribute.String("index.url", url),
	))
}

// RecordDetailFetch emits listing metrics when instrumentation is initialised.
func RecordDetailFetch(ctx context.Context, m DetailMetrics) {
	attrs := metric.WithAttributes(attribute.String("listing.status", m.Status))
	if detailDuration != nil {
		detailDuration.Record(ctx, float64(m.Duration.Milliseconds()), attrs)
	}
	if detailTotal != nil {
		detailTotal.Add(ctx, 1, attrs)
	}
}

// RecordPage emits index page metrics when instrumentation is initialised.
func RecordPage(ctx context.Context, m PageMetrics) {
	attrs := metric.WithAttributes(attribute.String("page.status", m.Status))
	if pageTotal != nil {
		pageTotal.Add(ctx, 1, attrs)
	}
	if pageListings != nil && m.Status == "success" {
		pageListings.Record(ctx, int64(m.Listings), attrs)
	}
}
