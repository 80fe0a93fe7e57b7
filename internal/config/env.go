package config

import "os"

// Environment variable names for overrides. The SF_* names are shared with
// the integration test fixtures.
const (
	EnvConfig       = "SHAREFILE_GO_CONFIG"
	EnvHost         = "SF_HOST"
	EnvCompany      = "SF_COMPANY"
	EnvClientID     = "SF_CLIENT_ID"
	EnvClientSecret = "SF_CLIENT_SECRET"
	EnvUsername     = "SF_USERNAME"
	EnvPassword     = "SF_PASSWORD"
	EnvDomain       = "SF_DOMAIN"
)

// EnvOverrides holds values derived from environment variables. Empty means
// "not set".
type EnvOverrides struct {
	ConfigPath   string
	Hostname     string
	Company      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	EmailDomain  string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify a Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		Hostname:     os.Getenv(EnvHost),
		Company:      os.Getenv(EnvCompany),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		Username:     os.Getenv(EnvUsername),
		Password:     os.Getenv(EnvPassword),
		EmailDomain:  os.Getenv(EnvDomain),
	}
}

// apply copies every non-empty override onto cfg.
func (e EnvOverrides) apply(cfg *Config) {
	setIf(&cfg.Hostname, e.Hostname)
	setIf(&cfg.Company, e.Company)
	setIf(&cfg.ClientID, e.ClientID)
	setIf(&cfg.ClientSecret, e.ClientSecret)
	setIf(&cfg.Username, e.Username)
	setIf(&cfg.Password, e.Password)
	setIf(&cfg.EmailDomain, e.EmailDomain)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// envNameFor maps an account key to its environment variable for error hints.
func envNameFor(key string) string {
	switch key {
	case "hostname":
		return EnvHost
	case "client_id":
		return EnvClientID
	case "client_secret":
		return EnvClientSecret
	case "username":
		return EnvUsername
	case "password":
		return EnvPassword
	case "company":
		return EnvCompany
	case "email_domain":
		return EnvDomain
	default:
		return ""
	}
}
