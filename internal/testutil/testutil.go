// Package testutil holds helpers shared by integration tests
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

// LoadTestEnv points DATABASE_URL at TEST_DATABASE_URL from .env.test and
// skips the test when no database is configured
func LoadTestEnv(t *testing.T) string {
	t.Helper()

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		return databaseURL
	}

	if envPath := findUp(".env.test"); envPath != "" {
		envMap, err := godotenv.Read(envPath)
		if err != nil {
			t.Logf("Warning: Failed to read %s: %v", envPath, err)
		} else if testDBURL := envMap["TEST_DATABASE_URL"]; testDBURL != "" {
			t.Setenv("DATABASE_URL", testDBURL)
			return testDBURL
		}
	}

	t.Skip("DATABASE_URL not set, skipping integration test")
	return ""
}

// findUp searches for name in the current and parent directories
func findUp(name string) string {
	dir, _ := os.Getwd()

	for range 5 {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
