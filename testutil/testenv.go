// Package testutil provides shared environment helpers for integration tests
// that talk to a real ShareFile account. It depends only on stdlib.
package testutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Env holds the SF_* fixture variables integration tests read.
type Env struct {
	Host         string
	Company      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Domain       string // e.g. "@ca.com"
	TestEmail1   string // disposable employee for create/delete
	TestEmail2   string // disposable employee for delete-with-reassign
}

// requiredVars must be set for any integration test to run.
var requiredVars = []string{
	"SF_HOST", "SF_CLIENT_ID", "SF_CLIENT_SECRET", "SF_USERNAME", "SF_PASSWORD",
}

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// LoadEnv loads .env from the module root and returns the fixture values.
// The test is skipped when any required variable is missing.
func LoadEnv(t *testing.T) Env {
	t.Helper()

	LoadDotEnv(filepath.Join(FindModuleRoot("."), ".env"))

	var missing []string

	for _, name := range requiredVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		t.Skipf("integration environment incomplete, missing %s", strings.Join(missing, ", "))
	}

	return Env{
		Host:         os.Getenv("SF_HOST"),
		Company:      os.Getenv("SF_COMPANY"),
		ClientID:     os.Getenv("SF_CLIENT_ID"),
		ClientSecret: os.Getenv("SF_CLIENT_SECRET"),
		Username:     os.Getenv("SF_USERNAME"),
		Password:     os.Getenv("SF_PASSWORD"),
		Domain:       os.Getenv("SF_DOMAIN"),
		TestEmail1:   os.Getenv("SF_TEST_EMAIL_1"),
		TestEmail2:   os.Getenv("SF_TEST_EMAIL_2"),
	}
}

// RequireTestEmail skips the test when the given disposable address is unset.
func RequireTestEmail(t *testing.T, name, value string) {
	t.Helper()

	if value == "" {
		t.Skipf("%s not set; skipping test that creates and deletes employees", name)
	}
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
