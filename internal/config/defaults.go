package config

import "time"

// Default values for configuration options. These are "layer 0" of the
// four-layer override chain.
const (
	defaultEmailDomain    = "ca.com"
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
	defaultRequestTimeout = "30s"
	defaultJournal        = true
	defaultTokenCache     = true

	defaultRequestTimeoutDuration = 30 * time.Second
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding, so unset keys keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		AccountConfig: AccountConfig{
			EmailDomain: defaultEmailDomain,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		NetworkConfig: NetworkConfig{
			RequestTimeout: defaultRequestTimeout,
		},
		StateConfig: StateConfig{
			Journal:    defaultJournal,
			TokenCache: defaultTokenCache,
		},
	}
}
