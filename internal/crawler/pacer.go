package crawler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Pacer keeps the crawl polite. Pause spaces out listings with a random
// delay; Wait enforces a floor between any two navigations. One Pacer is
// shared by the walker and the fetcher.
type Pacer struct {
	minDelay time.Duration
	maxDelay time.Duration
	limiter  *rate.Limiter
	sleep    SleepFunc
}

// NewPacer builds a pacer from the run config
func NewPacer(cfg *Config) *Pacer {
	limit := rate.Inf
	if cfg.MinRequestInterval > 0 {
		limit = rate.Every(cfg.MinRequestInterval)
	}
	return &Pacer{
		minDelay: cfg.PolitenessMinDelay,
		maxDelay: cfg.PolitenessMaxDelay,
		limiter:  rate.NewLimiter(limit, 1),
		sleep:    SleepContext,
	}
}

// WithSleep replaces the politeness sleep, for tests
func (p *Pacer) WithSleep(sleep SleepFunc) *Pacer {
	p.sleep = sleep
	return p
}

// Pause sleeps a random politeness delay
func (p *Pacer) Pause(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	delay := RandomDelay(p.minDelay, p.maxDelay)
	log.Debug().Dur("delay", delay).Msg("Politeness pause")
	return p.sleep(ctx, delay)
}

// Wait blocks until another navigation is allowed
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
