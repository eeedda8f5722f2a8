package main

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Harvey-AU/property-crawler/internal/jobs"
	"github.com/Harvey-AU/property-crawler/internal/observability"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// newServerMux serves /health, /status and, when telemetry is on, /metrics
func newServerMux(progress func() jobs.Progress, prov *observability.Providers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	limiter := newRateLimiter()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if !limiter.getLimiter(getClientIP(r)).Allow() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(progress()); err != nil {
			log.Debug().Err(err).Msg("Failed to write status response")
		}
	})

	if prov != nil && prov.MetricsHandler != nil {
		mux.Handle("/metrics", prov.MetricsHandler)
	}

	return observability.WrapHandler(loggingMiddleware(mux), prov)
}

// loggingMiddleware logs every request except health checks and scrapes
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("client_ip", getClientIP(r)).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("Request completed")
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter represents a rate limiting system based on client IP addresses
type RateLimiter struct {
	limits   map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	capacity int
}

func newRateLimiter() *RateLimiter {
	return &RateLimiter{
		limits:   make(map[string]*rate.Limiter),
		rate:     rate.Limit(5),
		capacity: 5,
	}
}

// getLimiter returns the rate limiter for a specific IP address
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limits[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.capacity)
		rl.limits[ip] = limiter
	}

	return limiter
}

// getClientIP extracts the client's IP address from a request
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}

	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	return ip
}
