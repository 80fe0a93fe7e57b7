package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation range constants.
const (
	minRequestTimeout = 1 * time.Second
	maxRequestTimeout = 10 * time.Minute
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAccount(&cfg.AccountConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)

	return errors.Join(errs...)
}

func validateAccount(a *AccountConfig) []error {
	var errs []error

	if strings.Contains(a.Hostname, "://") {
		errs = append(errs, fmt.Errorf("hostname: must be a bare host name without a scheme, got %q", a.Hostname))
	}

	if strings.ContainsAny(a.Hostname, "/?#") {
		errs = append(errs, fmt.Errorf("hostname: must not contain a path or query, got %q", a.Hostname))
	}

	if d := strings.TrimPrefix(a.EmailDomain, "@"); strings.Contains(d, "@") {
		errs = append(errs, fmt.Errorf("email_domain: must be a domain such as example.com, got %q", a.EmailDomain))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	d, err := time.ParseDuration(n.RequestTimeout)
	if err != nil {
		return []error{fmt.Errorf("request_timeout: invalid duration %q: %w", n.RequestTimeout, err)}
	}

	if d < minRequestTimeout || d > maxRequestTimeout {
		return []error{fmt.Errorf("request_timeout: must be between %s and %s, got %s",
			minRequestTimeout, maxRequestTimeout, d)}
	}

	return nil
}
