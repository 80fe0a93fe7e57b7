package config

import (
	"fmt"
	"io"
)

// redacted replaces secret values in rendered output.
const redacted = "********"

// RenderEffective writes the resolved configuration as an annotated
// TOML-like summary to w. Secrets are masked. This powers "config show".
func RenderEffective(cfg *Config, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration\n\n")

	renderAccountSection(ew, &cfg.AccountConfig)
	renderLoggingSection(ew, &cfg.LoggingConfig)
	renderNetworkSection(ew, &cfg.NetworkConfig)
	renderStateSection(ew, cfg)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}

	return redacted
}

func renderAccountSection(ew *errWriter, a *AccountConfig) {
	ew.printf("# account\n")
	ew.printf("hostname      = %q\n", a.Hostname)
	ew.printf("client_id     = %q\n", a.ClientID)
	ew.printf("client_secret = %q\n", mask(a.ClientSecret))
	ew.printf("username      = %q\n", a.Username)
	ew.printf("password      = %q\n", mask(a.Password))

	if a.Company != "" {
		ew.printf("company       = %q\n", a.Company)
	}

	ew.printf("email_domain  = %q\n", a.EmailDomain)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("# logging\n")
	ew.printf("log_level  = %q\n", l.LogLevel)
	ew.printf("log_format = %q\n", l.LogFormat)
	ew.printf("\n")
}

func renderNetworkSection(ew *errWriter, n *NetworkConfig) {
	ew.printf("# network\n")
	ew.printf("request_timeout = %q\n", n.RequestTimeout)

	if n.UserAgent != "" {
		ew.printf("user_agent      = %q\n", n.UserAgent)
	}

	ew.printf("\n")
}

func renderStateSection(ew *errWriter, cfg *Config) {
	ew.printf("# state\n")
	ew.printf("state_dir   = %q\n", cfg.ResolvedStateDir())
	ew.printf("journal     = %t\n", cfg.Journal)
	ew.printf("token_cache = %t\n", cfg.TokenCache)
}
