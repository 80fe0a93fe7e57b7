// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for sharefile-go. It supports a
// four-layer override chain (defaults -> config file -> environment -> CLI
// flags). All keys are flat at the top level of the file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Config is the top-level configuration structure parsed from a TOML file.
// The embedded sub-structs only group related keys; the file itself has no
// sections.
type Config struct {
	AccountConfig
	LoggingConfig
	NetworkConfig
	StateConfig
}

// AccountConfig identifies the ShareFile account and the OAuth client used
// to reach it.
type AccountConfig struct {
	Hostname     string `toml:"hostname"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	Company      string `toml:"company"`
	EmailDomain  string `toml:"email_domain"`
}

// LoggingConfig controls log output level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	RequestTimeout string `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// StateConfig controls what sharefile-go keeps on disk between runs.
type StateConfig struct {
	StateDir   string `toml:"state_dir"`
	Journal    bool   `toml:"journal"`
	TokenCache bool   `toml:"token_cache"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	Hostname   *string // --host flag
	Username   *string // --user flag
	StateDir   *string // --state-dir flag
	NoJournal  *bool   // --no-journal flag
}

// Timeout returns the parsed request_timeout. Validation guarantees it parses.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return defaultRequestTimeoutDuration
	}

	return d
}

// ResolvedStateDir returns state_dir with "~/" expanded, falling back to the
// platform data directory.
func (c *Config) ResolvedStateDir() string {
	if c.StateDir != "" {
		return expandTilde(c.StateDir)
	}

	return DefaultDataDir()
}

// TokenPath returns where the OAuth token for this account is cached.
func (c *Config) TokenPath() string {
	dir := c.ResolvedStateDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, tokensDirName, tokenFileName)
}

// JournalPath returns the operation journal database path.
func (c *Config) JournalPath() string {
	dir := c.ResolvedStateDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, journalFileName)
}

// RequireAccount reports every account key that commands talking to the
// service need but the resolved config lacks.
func (c *Config) RequireAccount() error {
	var errs []error

	required := []struct {
		key, val string
	}{
		{"hostname", c.Hostname},
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
		{"username", c.Username},
		{"password", c.Password},
	}

	for _, r := range required {
		if r.val == "" {
			errs = append(errs, fmt.Errorf("%s: must be set (config file, %s or flag)", r.key, envNameFor(r.key)))
		}
	}

	return errors.Join(errs...)
}
