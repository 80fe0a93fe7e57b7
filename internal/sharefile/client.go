package sharefile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	responseFormat   = "json"
	legacyPathFormat = "/rest/%s.aspx"
	restHostFormat   = "https://%s.sf-api.com"
	formContentType  = "application/x-www-form-urlencoded"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "sharefile-go/0.1"

// Reserved legacy query keys. Caller params carrying them are overwritten.
const (
	paramAuthID = "authid"
	paramFormat = "fmt"
	paramOp     = "op"
)

// Client talks to both ShareFile API families. Credentials are acquired
// lazily on first use and cached for the lifetime of the Client.
type Client struct {
	cfg        Config
	httpClient *http.Client // metadata calls, bounded by its Timeout
	transfer   *http.Client // upload bodies, bounded only by ctx
	logger     *slog.Logger

	// baseURL is "https://{hostname}"; restURL maps a token subdomain to the
	// REST base URL. Tests point both at httptest servers.
	baseURL string
	restURL func(subdomain string) string
	now     func() time.Time

	authID credentialSlot[string]
	token  credentialSlot[*Token]
}

// NewClient creates a ShareFile client. cfg is copied and never mutated.
// Upload bodies go through a copy of httpClient with no Timeout, so a large
// file is limited by ctx alone.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		transfer:   transferClient(httpClient),
		logger:     logger,
		baseURL:    "https://" + cfg.Hostname,
		restURL: func(subdomain string) string {
			return fmt.Sprintf(restHostFormat, subdomain)
		},
		now: time.Now,
	}
}

// Config returns a copy of the client's connection parameters.
func (c *Client) Config() Config {
	return c.cfg
}

// legacyRequest describes one call to the .aspx RPC family.
type legacyRequest struct {
	Endpoint string
	Op       string
	Params   url.Values
	Method   string // GET when empty
	Body     io.Reader
	Header   http.Header
}

// legacyURL builds https://{hostname}/rest/{endpoint}.aspx?{query}.
func (c *Client) legacyURL(endpoint string, query url.Values) string {
	return c.baseURL + fmt.Sprintf(legacyPathFormat, url.PathEscape(endpoint)) + "?" + query.Encode()
}

// legacyQuery copies params and sets authid, fmt and op unconditionally.
func legacyQuery(params url.Values, authID, op string) url.Values {
	q := make(url.Values, len(params)+3)
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}

	q.Set(paramAuthID, authID)
	q.Set(paramFormat, responseFormat)
	q.Set(paramOp, op)

	return q
}

// legacyCall executes a legacy RPC call and decodes the {error, value}
// envelope. An envelope with error=true is returned as data, not as an error.
func (c *Client) legacyCall(ctx context.Context, r legacyRequest) (*Envelope, error) {
	if err := c.ensureAuth(ctx, AuthLegacy); err != nil {
		return nil, err
	}

	// An absent auth-id is sent as-is; the server answers with an error envelope.
	authID, _ := c.authID.get()

	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}

	req, err := c.newRequest(ctx, method, c.legacyURL(r.Endpoint, legacyQuery(r.Params, authID, r.Op)), r.Body)
	if err != nil {
		return nil, err
	}

	for k, v := range r.Header {
		req.Header[k] = v
	}

	body, status, err := c.roundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("sharefile: %s/%s: %w", r.Endpoint, r.Op, err)
	}

	var env Envelope
	if decErr := json.Unmarshal(body, &env); decErr != nil {
		if !isSuccess(status) {
			return nil, &APIError{StatusCode: status, Message: string(body), Err: classifyStatus(status)}
		}

		return nil, fmt.Errorf("sharefile: decoding %s/%s response: %w", r.Endpoint, r.Op, decErr)
	}

	c.logger.Debug("legacy call completed",
		slog.String("endpoint", r.Endpoint),
		slog.String("op", r.Op),
		slog.Int("status", status),
		slog.Bool("error", env.Error),
	)

	return &env, nil
}

// restCall executes a REST call with the bearer token and returns the raw
// response body. data, when non-empty, is sent form-encoded.
func (c *Client) restCall(ctx context.Context, method, path string, data url.Values) ([]byte, error) {
	if err := c.ensureAuth(ctx, AuthREST); err != nil {
		return nil, err
	}

	tok, ok := c.token.get()
	if !ok || tok == nil {
		return nil, ErrNotAuthenticated
	}

	var body io.Reader
	if len(data) > 0 {
		body = strings.NewReader(data.Encode())
	}

	req, err := c.newRequest(ctx, strings.ToUpper(method), c.restURL(tok.Subdomain)+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	if body != nil {
		req.Header.Set("Content-Type", formContentType)
	}

	respBody, status, err := c.roundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("sharefile: %s %s: %w", method, path, err)
	}

	if !isSuccess(status) {
		c.logger.Warn("rest call failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
		)

		return nil, &APIError{StatusCode: status, Message: string(respBody), Err: classifyStatus(status)}
	}

	c.logger.Debug("rest call completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
	)

	return respBody, nil
}

// newRequest builds a request that closes its connection after the response.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("sharefile: creating request: %w", err)
	}

	ua := c.cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	req.Header.Set("User-Agent", ua)
	req.Close = true

	return req, nil
}

// transferClient shares hc's transport, redirect policy and jar but drops
// its overall Timeout.
func transferClient(hc *http.Client) *http.Client {
	transfer := *hc
	transfer.Timeout = 0

	return &transfer
}

// roundTrip sends req on the metadata client and reads the full response body.
func (c *Client) roundTrip(req *http.Request) ([]byte, int, error) {
	return c.send(c.httpClient, req)
}

func (c *Client) send(hc *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := hc.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redactURL(urlErr.URL)
		}

		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

// secretParams are query keys whose values never appear in errors or logs.
var secretParams = []string{paramAuthID, "password"}

// redactURL masks credential query values in rawURL.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "(unparseable url)"
	}

	q := u.Query()
	changed := false

	for _, k := range secretParams {
		if q.Has(k) {
			q.Set(k, "REDACTED")
			changed = true
		}
	}

	if changed {
		u.RawQuery = q.Encode()
	}

	return u.String()
}
