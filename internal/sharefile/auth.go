package sharefile

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const (
	tokenPath      = "/oauth/token"
	loginEndpoint  = "getAuthID"
	errBodySnippet = 512
)

// Token metadata keys, shared with the on-disk token file.
const (
	metaSubdomain = "subdomain"
	metaAPICP     = "apicp"
)

// AuthID performs the legacy username/password login and caches the result.
// It reports false when the login is rejected or the request fails; the
// cached auth-id is cleared in that case. It never returns an error.
func (c *Client) AuthID(ctx context.Context) (string, bool) {
	return c.acquireAuthID(ctx)
}

// Token performs the OAuth2 password grant and caches the result. Only an
// HTTP 200 response populates the cache; on any failure the previously
// cached token (if any) is returned unchanged.
func (c *Client) Token(ctx context.Context) (*Token, bool) {
	return c.acquireToken(ctx)
}

// UseToken seeds the REST credential, e.g. from a token file saved by an
// earlier run. A nil token is ignored.
func (c *Client) UseToken(tok *Token) {
	if tok == nil || tok.AccessToken == "" {
		return
	}

	c.token.set(tok)
}

// CachedToken returns the REST credential without triggering acquisition.
func (c *Client) CachedToken() (*Token, bool) {
	return c.token.get()
}

// CachedAuthID returns the legacy credential without triggering acquisition.
func (c *Client) CachedAuthID() (string, bool) {
	return c.authID.get()
}

func (c *Client) acquireAuthID(ctx context.Context) (string, bool) {
	q := url.Values{
		"username":  {c.cfg.Username},
		"password":  {c.cfg.Password},
		paramFormat: {responseFormat},
	}

	c.logger.Info("requesting legacy auth id", slog.String("username", c.cfg.Username))

	req, err := c.newRequest(ctx, http.MethodGet, c.legacyURL(loginEndpoint, q), nil)
	if err != nil {
		c.authIDFailed("building login request", err)
		return "", false
	}

	body, _, err := c.roundTrip(req)
	if err != nil {
		c.authIDFailed("login request failed", err)
		return "", false
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.authIDFailed("decoding login response", err)
		return "", false
	}

	if env.Error {
		c.authIDFailed("login rejected", &EnvelopeError{
			Endpoint: loginEndpoint,
			Message:  env.ErrorMessage,
			Code:     env.ErrorCode,
		})

		return "", false
	}

	var id string
	if err := env.Decode(&id); err != nil || id == "" {
		c.authIDFailed("login response carried no auth id", err)
		return "", false
	}

	c.authID.set(id)
	c.logger.Info("legacy auth id acquired", slog.String("username", c.cfg.Username))

	return id, true
}

func (c *Client) authIDFailed(msg string, err error) {
	attrs := []any{slog.String("username", c.cfg.Username)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	c.logger.Warn(msg, attrs...)
	c.authID.clear()
}

// oauthConfig builds the password-grant configuration. Client credentials
// travel in the form body, as the token endpoint expects.
func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *Client) acquireToken(ctx context.Context) (*Token, bool) {
	c.logger.Info("requesting oauth token", slog.String("username", c.cfg.Username))

	hc := &http.Client{
		Transport: &statusGuard{base: transportOf(c.httpClient)},
		Timeout:   c.httpClient.Timeout,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)

	raw, err := c.oauthConfig().PasswordCredentialsToken(ctx, c.cfg.Username, c.cfg.Password)
	if err != nil {
		c.logger.Warn("token request failed",
			slog.String("username", c.cfg.Username),
			slog.String("error", err.Error()),
		)

		return c.token.get()
	}

	tok := tokenFromOAuth(raw)
	if tok.Subdomain == "" {
		c.logger.Warn("token response missing subdomain", slog.String("username", c.cfg.Username))
		return c.token.get()
	}

	c.token.set(tok)
	c.logger.Info("oauth token acquired",
		slog.String("subdomain", tok.Subdomain),
		slog.Time("expiry", tok.Expiry),
	)

	return tok, true
}

// statusGuard rejects every token endpoint response other than 200 OK, so
// 201 or 204 replies never populate the token slot.
type statusGuard struct {
	base http.RoundTripper
}

func (g *statusGuard) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := g.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errBodySnippet))
	resp.Body.Close()

	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(snippet),
		Err:        classifyStatus(resp.StatusCode),
	}
}

func transportOf(hc *http.Client) http.RoundTripper {
	if hc.Transport != nil {
		return hc.Transport
	}

	return http.DefaultTransport
}

// tokenFromOAuth extracts the provider-specific fields from an oauth2 token.
func tokenFromOAuth(t *oauth2.Token) *Token {
	return &Token{
		AccessToken:     t.AccessToken,
		TokenType:       t.TokenType,
		RefreshToken:    t.RefreshToken,
		Expiry:          t.Expiry,
		Subdomain:       extraString(t, metaSubdomain),
		APIControlPlane: extraString(t, metaAPICP),
	}
}

func extraString(t *oauth2.Token, key string) string {
	if s, ok := t.Extra(key).(string); ok {
		return s
	}

	return ""
}

// OAuth2 converts the token back into its oauth2 form for persistence.
func (t *Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
}

// Meta returns the token fields that oauth2.Token cannot carry.
func (t *Token) Meta() map[string]string {
	meta := map[string]string{metaSubdomain: t.Subdomain}
	if t.APIControlPlane != "" {
		meta[metaAPICP] = t.APIControlPlane
	}

	return meta
}

// TokenFromFile rebuilds a Token from a persisted oauth2 token and its
// metadata. Returns nil when tok is nil or the subdomain is missing.
func TokenFromFile(tok *oauth2.Token, meta map[string]string) *Token {
	if tok == nil || meta[metaSubdomain] == "" {
		return nil
	}

	return &Token{
		AccessToken:     tok.AccessToken,
		TokenType:       tok.TokenType,
		RefreshToken:    tok.RefreshToken,
		Expiry:          tok.Expiry,
		Subdomain:       meta[metaSubdomain],
		APIControlPlane: meta[metaAPICP],
	}
}

// Expired reports whether the token carries an expiry in the past. The
// client never refreshes; callers decide whether to log in again.
func (t *Token) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && t.Expiry.Before(now)
}
