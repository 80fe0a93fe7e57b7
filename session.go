package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/sharefile-go/internal/config"
	"github.com/tonimelisma/sharefile-go/internal/journal"
	"github.com/tonimelisma/sharefile-go/internal/sharefile"
	"github.com/tonimelisma/sharefile-go/internal/tokenfile"
)

// Session holds the API client for the configured account plus the optional
// operation journal. Close persists a newly acquired token.
type Session struct {
	Client  *sharefile.Client
	Journal *journal.Journal // nil when journaling is disabled

	cfg       *config.Config
	logger    *slog.Logger
	tokenPath string
	seeded    *sharefile.Token
}

// NewSession validates the account settings, builds a client, seeds it with
// a cached token when one is usable, and opens the journal.
func NewSession(ctx context.Context, cc *CLIContext) (*Session, error) {
	cfg := cc.Cfg

	if err := cfg.RequireAccount(); err != nil {
		return nil, fmt.Errorf("incomplete account configuration:\n%w", err)
	}

	s := &Session{
		Client:    sharefile.NewClient(clientConfig(cfg), newHTTPClient(cfg), cc.Logger),
		cfg:       cfg,
		logger:    cc.Logger,
		tokenPath: cfg.TokenPath(),
	}

	if cfg.TokenCache {
		s.seedToken()
	}

	if cfg.Journal {
		j, err := journal.Open(ctx, cfg.JournalPath(), cc.Logger)
		if err != nil {
			return nil, err
		}

		s.Journal = j
	}

	return s, nil
}

// clientConfig maps the resolved config onto the client's connection values.
func clientConfig(cfg *config.Config) sharefile.Config {
	return sharefile.Config{
		Hostname:     cfg.Hostname,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Company:      cfg.Company,
		EmailDomain:  cfg.EmailDomain,
		UserAgent:    cfg.UserAgent,
	}
}

// seedToken loads the cached token. Tokens are never refreshed, so an expired
// or foreign one is ignored and the next REST call logs in again.
func (s *Session) seedToken() {
	entry, err := tokenfile.LoadFor(s.tokenPath, s.cfg.Hostname, s.cfg.Username)
	if err != nil {
		s.logger.Warn("ignoring cached token", slog.String("error", err.Error()))
		return
	}

	if entry == nil {
		return
	}

	tok := sharefile.TokenFromFile(entry.Token, entry.Meta)
	if tok == nil {
		s.logger.Warn("ignoring cached token without subdomain", slog.String("path", s.tokenPath))
		return
	}

	if tok.Expired(time.Now()) {
		s.logger.Debug("cached token expired", slog.Time("expiry", tok.Expiry))
		return
	}

	s.Client.UseToken(tok)
	s.seeded = tok
}

// SaveToken writes the client's current token to the cache if it differs
// from the one the session was seeded with. It reports whether it wrote.
func (s *Session) SaveToken() (bool, error) {
	if !s.cfg.TokenCache {
		return false, nil
	}

	tok, ok := s.Client.CachedToken()
	if !ok || tok == s.seeded {
		return false, nil
	}

	err := tokenfile.Save(s.tokenPath, &tokenfile.Entry{
		Hostname: s.cfg.Hostname,
		Username: s.cfg.Username,
		Token:    tok.OAuth2(),
		Meta:     tok.Meta(),
	})
	if err != nil {
		return false, err
	}

	s.seeded = tok
	s.logger.Debug("token cached", slog.String("path", s.tokenPath))

	return true, nil
}

// Record journals one mutating operation. env may be nil when the call
// failed before an envelope arrived. The write ignores ctx cancellation, so an
// operation the server already applied is journaled after an interrupt.
// Journal failures are logged only.
func (s *Session) Record(ctx context.Context, operation, target string, env *sharefile.Envelope, err error) {
	if s.Journal == nil {
		return
	}

	rejected := env != nil && env.Error
	detail := ""

	switch {
	case err != nil:
		detail = err.Error()
	case rejected:
		detail = env.ErrorMessage
	}

	if _, jErr := s.Journal.Record(context.WithoutCancel(ctx), operation, target, journal.OutcomeOf(rejected, err), detail); jErr != nil {
		s.logger.Warn("journal write failed", slog.String("error", jErr.Error()))
	}
}

// Close persists a new token and closes the journal.
func (s *Session) Close() error {
	var errs []error

	if _, err := s.SaveToken(); err != nil {
		errs = append(errs, err)
	}

	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// withSession opens a session, runs fn, and closes the session, keeping fn's
// error when both fail.
func withSession(ctx context.Context, cc *CLIContext, fn func(*Session) error) (err error) {
	s, err := NewSession(ctx, cc)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			if err == nil {
				err = closeErr
			} else {
				cc.Logger.Warn("closing session", slog.String("error", closeErr.Error()))
			}
		}
	}()

	return fn(s)
}

// envelopeResult turns an error envelope into a Go error for commands that
// should exit non-zero when the service rejects them.
func envelopeResult(env *sharefile.Envelope, endpoint, op string) error {
	if env == nil {
		return nil
	}

	return env.Err(endpoint, op)
}
