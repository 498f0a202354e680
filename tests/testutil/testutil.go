package testutil

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
)

// RequireTestEnvironment fails the test unless GO_ENV is "test". The
// suites wipe tables between tests, so this guard keeps them away from
// development or production databases.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("refusing to run destructive tests with GO_ENV=%q; set GO_ENV=test", env)
	}
}

// RequireTestEnvironmentOrSkip skips the test instead of failing it
// when GO_ENV is not "test". For optional suites that can be left out
// of a partial run.
func RequireTestEnvironmentOrSkip(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Skipf("skipping: GO_ENV must be 'test' (current: %q)", env)
	}
}

// MustSetTestEnvironment forces GO_ENV=test. Call it from TestMain or
// a suite's SetupSuite before config.Load.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("failed to set GO_ENV=test: %v", err)
	}
	if os.Getenv("GO_ENV") != "test" {
		t.Fatal("GO_ENV=test did not stick")
	}
}

// PrintEnvironmentInfo dumps the test-relevant environment with
// credentials masked. Handy when a suite fails on configuration.
func PrintEnvironmentInfo() {
	fmt.Printf("Test environment:\n")
	fmt.Printf("  GO_ENV:        %s\n", os.Getenv("GO_ENV"))
	fmt.Printf("  DATABASE_URL:  %s\n", maskDatabaseURL(os.Getenv("DATABASE_URL")))
	fmt.Printf("  AUTH0_DOMAIN:  %s\n", os.Getenv("AUTH0_DOMAIN"))
	fmt.Printf("  PORT:          %s\n", os.Getenv("PORT"))
}

// maskDatabaseURL hides credentials and flags URLs that do not look
// like a test database
func maskDatabaseURL(raw string) string {
	if raw == "" {
		return "(not set)"
	}

	display := raw
	if u, err := url.Parse(raw); err == nil && u.User != nil {
		u.User = url.User("***")
		display = u.String()
	}

	if !strings.Contains(raw, "test") {
		display += " [WARNING: may not be a test database]"
	}
	return display
}
