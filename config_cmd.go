package main

import (
	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharefile-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

// configOutput is the JSON schema for `config show --json`. Secrets are
// reported only as set or unset.
type configOutput struct {
	Hostname        string `json:"hostname"`
	ClientID        string `json:"client_id"`
	ClientSecretSet bool   `json:"client_secret_set"`
	Username        string `json:"username"`
	PasswordSet     bool   `json:"password_set"`
	Company         string `json:"company"`
	EmailDomain     string `json:"email_domain"`
	LogLevel        string `json:"log_level"`
	LogFormat       string `json:"log_format"`
	RequestTimeout  string `json:"request_timeout"`
	UserAgent       string `json:"user_agent,omitempty"`
	StateDir        string `json:"state_dir"`
	Journal         bool   `json:"journal"`
	TokenCache      bool   `json:"token_cache"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cfg := cc.Cfg

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), configOutput{
			Hostname:        cfg.Hostname,
			ClientID:        cfg.ClientID,
			ClientSecretSet: cfg.ClientSecret != "",
			Username:        cfg.Username,
			PasswordSet:     cfg.Password != "",
			Company:         cfg.Company,
			EmailDomain:     cfg.EmailDomain,
			LogLevel:        cfg.LogLevel,
			LogFormat:       cfg.LogFormat,
			RequestTimeout:  cfg.RequestTimeout,
			UserAgent:       cfg.UserAgent,
			StateDir:        cfg.ResolvedStateDir(),
			Journal:         cfg.Journal,
			TokenCache:      cfg.TokenCache,
		})
	}

	return config.RenderEffective(cfg, cmd.OutOrStdout())
}
