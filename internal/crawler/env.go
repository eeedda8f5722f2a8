package crawler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ConfigFromEnv reads the crawl settings from the environment on top of
// DefaultConfig. Unset or unparseable values keep their defaults.
func ConfigFromEnv() *Config {
	defaults := DefaultConfig()

	return &Config{
		SearchURL:          getEnvWithDefault("SEARCH_URL", defaults.SearchURL),
		MaxRecords:         getEnvInt("MAX_RECORDS", defaults.MaxRecords),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", defaults.RequestTimeout),
		SettleDelay:        getEnvDuration("SETTLE_DELAY", defaults.SettleDelay),
		ElementTimeout:     getEnvDuration("ELEMENT_TIMEOUT", defaults.ElementTimeout),
		RetryAttempts:      getEnvInt("RETRY_ATTEMPTS", defaults.RetryAttempts),
		RetryMinDelay:      getEnvDuration("RETRY_MIN_DELAY", defaults.RetryMinDelay),
		RetryMaxDelay:      getEnvDuration("RETRY_MAX_DELAY", defaults.RetryMaxDelay),
		PolitenessMinDelay: getEnvDuration("POLITENESS_MIN_DELAY", defaults.PolitenessMinDelay),
		PolitenessMaxDelay: getEnvDuration("POLITENESS_MAX_DELAY", defaults.PolitenessMaxDelay),
		MinRequestInterval: getEnvDuration("MIN_REQUEST_INTERVAL", defaults.MinRequestInterval),
		UserAgent:          getEnvWithDefault("USER_AGENT", defaults.UserAgent),
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns a default value if not set or invalid
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result int
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		log.Warn().
			Str("key", key).
			Str("value", value).
			Int("default", defaultValue).
			Msg("Invalid integer in environment variable, using default")
		return defaultValue
	}

	return result
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	var seconds int
	if _, err := fmt.Sscanf(value, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	log.Warn().
		Str("key", key).
		Str("value", value).
		Dur("default", defaultValue).
		Msg("Invalid duration in environment variable, using default")
	return defaultValue
}
