package crawler

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds the attempts for one operation. The delay between
// attempts is drawn uniformly from [MinDelay, MaxDelay].
type RetryPolicy struct {
	Attempts int
	MinDelay time.Duration
	MaxDelay time.Duration
	Sleep    SleepFunc // nil sleeps on the wall clock
}

// Retry runs fn until it succeeds or the attempts are used up. It returns
// the number of attempts made and the last error. There is no delay after
// the final attempt. A cancelled context stops retrying immediately.
func Retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) (int, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return attempt - 1, lastErr
		}

		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return attempt, err
		}

		if attempt >= attempts {
			break
		}

		delay := RandomDelay(policy.MinDelay, policy.MaxDelay)
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("retry_in", delay).
			Msg("Attempt failed, retrying")

		if err := sleep(ctx, delay); err != nil {
			return attempt, lastErr
		}
	}

	log.Warn().
		Err(lastErr).
		Int("attempts", attempts).
		Msg("All attempts failed")

	return attempts, lastErr
}

// RandomDelay returns a uniformly random duration in [min, max]
func RandomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// SleepContext waits for d, returning early with the context error on cancellation
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
