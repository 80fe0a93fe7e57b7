package sharefile

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testAuthID = "test-auth-id"

// testConfig is the connection configuration shared by unit tests.
func testConfig() Config {
	return Config{
		Hostname:     "example.sharefile.com",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Username:     "admin@ca.com",
		Password:     "hunter2",
		Company:      "Acme",
	}
}

// recordedRequest captures the parts of a request tests assert on.
type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   []byte
}

// requestLog records every request a test server receives.
type requestLog struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (l *requestLog) add(r *http.Request, body []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reqs = append(l.reqs, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
}

func (l *requestLog) all() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]recordedRequest(nil), l.reqs...)
}

// byPath returns recorded requests for path, optionally filtered by op.
func (l *requestLog) byPath(path, op string) []recordedRequest {
	var out []recordedRequest

	for _, r := range l.all() {
		if r.Path != path {
			continue
		}

		if op != "" && first(r.Query["op"]) != op {
			continue
		}

		out = append(out, r)
	}

	return out
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}

	return v[0]
}

// newTestClient starts an httptest server with handler and returns a Client
// whose legacy and REST base URLs both point at it. Every request is logged.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *requestLog, *httptest.Server) {
	t.Helper()

	reqLog := &requestLog{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		r.Body = io.NopCloser(bytes.NewReader(body))
		reqLog.add(r, body)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(testConfig(), srv.Client(), testLogger())
	c.baseURL = srv.URL
	c.restURL = func(string) string { return srv.URL }

	return c, reqLog, srv
}

// newSeededClient is newTestClient with the legacy auth-id already cached,
// so only the operation's own requests reach the server.
func newSeededClient(t *testing.T, handler http.Handler) (*Client, *requestLog) {
	t.Helper()

	c, reqLog, _ := newTestClient(t, handler)
	c.authID.set(testAuthID)

	return c, reqLog
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// writeEnvelope writes a legacy {error, value} response.
func writeEnvelope(w http.ResponseWriter, failed bool, value any) {
	w.Header().Set("Content-Type", "application/json")

	resp := map[string]any{"error": failed, "value": value}
	if failed {
		resp["errorMessage"] = value
		resp["errorCode"] = 404
	}

	_ = json.NewEncoder(w).Encode(resp)
}
