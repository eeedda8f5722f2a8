package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// RetryConfig holds configuration for retry behaviour
type RetryConfig struct {
	MaxAttempts     int           // Maximum number of attempts
	InitialInterval time.Duration // Initial retry interval
	MaxInterval     time.Duration // Maximum retry interval (cap for exponential backoff)
	Multiplier      float64       // Backoff multiplier (typically 2.0)
	Jitter          bool          // Add up to ±10% randomness to each interval
}

// DefaultRetryConfig returns the connection retry policy. The mirror is
// optional, so a database that stays down costs the run well under a minute.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 1 * time.Second,
		MaxInterval:     15 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// WriteRetryConfig returns the policy for single-row writes
func WriteRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// InitFromEnvWithRetry creates a PostgreSQL connection using environment variables
// with automatic retry on connection failures
func InitFromEnvWithRetry(ctx context.Context) (*DB, error) {
	return InitFromEnvWithRetryConfig(ctx, DefaultRetryConfig())
}

// InitFromEnvWithRetryConfig creates a PostgreSQL connection with custom retry configuration
func InitFromEnvWithRetryConfig(ctx context.Context, retryConfig RetryConfig) (*DB, error) {
	var db *DB
	err := withBackoff(ctx, retryConfig, "connect", func() error {
		conn, err := InitFromEnv()
		if err != nil {
			return err
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}

// withBackoff runs fn until it succeeds, fails permanently or runs out of
// attempts. Intervals grow exponentially up to MaxInterval.
func withBackoff(ctx context.Context, cfg RetryConfig, op string, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := cfg.InitialInterval
	startTime := time.Now()

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("operation", op).
					Int("attempts", attempt).
					Dur("elapsed", time.Since(startTime)).
					Msg("Database operation succeeded after retries")
			}
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			log.Error().
				Err(err).
				Str("operation", op).
				Int("attempt", attempt).
				Msg("Database operation failed with non-retryable error")
			return err
		}

		if attempt >= attempts {
			break
		}

		log.Warn().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("retry_in", backoff).
			Msg("Database operation failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s retry cancelled: %w", op, ctx.Err())
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if backoff > cfg.MaxInterval {
			backoff = cfg.MaxInterval
		}
		if cfg.Jitter {
			backoff += time.Duration(float64(backoff) * 0.1 * (2*rand.Float64() - 1))
		}
	}

	log.Error().
		Err(lastErr).
		Str("operation", op).
		Int("max_attempts", attempts).
		Msg("Database operation failed after all retry attempts")

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}

// isRetryableError reports whether err is infrastructure-related (retry)
// rather than data-related (a bad row that will fail again)
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if code := sqlState(err); len(code) >= 2 {
		switch code[:2] {
		case "08": // Connection exceptions
			return true
		case "53": // Insufficient resources
			return true
		case "57": // Operator intervention
			return true
		case "58": // System errors
			return true
		case "23": // Integrity constraint violations
			return false
		case "22": // Data exceptions
			return false
		case "28": // Invalid authorisation
			return false
		case "3D": // Invalid catalog name (database does not exist)
			return false
		case "42": // Syntax error or access rule violation
			return false
		default:
			return true
		}
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	for _, connErr := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"too many clients",
	} {
		if strings.Contains(errMsg, connErr) {
			return true
		}
	}

	for _, permanent := range []string{
		"password authentication failed",
		"does not exist",
		"cannot parse",
	} {
		if strings.Contains(errMsg, permanent) {
			return false
		}
	}

	return true
}

// sqlState returns the SQLSTATE carried by err. The pgx stdlib driver
// reports *pgconn.PgError; lib/pq errors are still recognised.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
