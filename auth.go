package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/sharefile-go/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate against both ShareFile APIs and cache the OAuth token",
		Long: `Authenticate with the configured username and password. Both the OAuth
password grant and the legacy auth-id login are tried so that every command
works afterwards. Any previously cached token is discarded first.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached OAuth token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newAuthIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authid",
		Short: "Print a legacy API auth id for the configured account",
		Args:  cobra.NoArgs,
		RunE:  runAuthID,
	}
}

// loginOutput is the JSON schema for `login --json`.
type loginOutput struct {
	Hostname    string    `json:"hostname"`
	Username    string    `json:"username"`
	Subdomain   string    `json:"subdomain"`
	Expiry      time.Time `json:"expiry,omitzero"`
	TokenCached bool      `json:"token_cached"`
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	if _, err := tokenfile.Remove(cc.Cfg.TokenPath()); err != nil {
		return err
	}

	cc.Logger.Info("login started",
		slog.String("hostname", cc.Cfg.Hostname),
		slog.String("username", cc.Cfg.Username),
	)

	return withSession(ctx, cc, func(s *Session) error {
		tok, ok := s.Client.Token(ctx)
		if !ok {
			return fmt.Errorf("login failed: OAuth token request for %s was rejected", cc.Cfg.Username)
		}

		if _, ok := s.Client.AuthID(ctx); !ok {
			return fmt.Errorf("login failed: legacy login for %s was rejected", cc.Cfg.Username)
		}

		cached, err := s.SaveToken()
		if err != nil {
			return err
		}

		cc.Logger.Info("login successful", slog.String("subdomain", tok.Subdomain))

		if cc.Flags.JSON {
			return printJSON(cmd.OutOrStdout(), loginOutput{
				Hostname:    cc.Cfg.Hostname,
				Username:    cc.Cfg.Username,
				Subdomain:   tok.Subdomain,
				Expiry:      tok.Expiry,
				TokenCached: cached,
			})
		}

		cc.Statusf("Logged in to %s as %s.\n", cc.Cfg.Hostname, cc.Cfg.Username)

		return nil
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	path := cc.Cfg.TokenPath()

	removed, err := tokenfile.Remove(path)
	if err != nil {
		return err
	}

	cc.Logger.Info("logout", slog.String("path", path), slog.Bool("removed", removed))

	if removed {
		cc.Statusf("Removed cached token.\n")
	} else {
		cc.Statusf("No cached token.\n")
	}

	return nil
}

func runAuthID(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	return withSession(ctx, cc, func(s *Session) error {
		id, ok := s.Client.AuthID(ctx)
		if !ok {
			return fmt.Errorf("could not obtain an auth id for %s", cc.Cfg.Username)
		}

		if cc.Flags.JSON {
			return printJSON(cmd.OutOrStdout(), map[string]string{"authid": id})
		}

		fmt.Fprintln(cmd.OutOrStdout(), id)

		return nil
	})
}
