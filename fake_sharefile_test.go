package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/sharefile-go/internal/config"
)

const (
	testHost     = "acme.sharefile.com"
	testUser     = "admin@acme.com"
	testAuthID   = "AUTH1"
	testToken    = "access-1"
	testHomeID   = "fohome"
	testUploadID = "up-7"
)

// fakeShareFile serves the legacy RPC family, the OAuth token endpoint, the
// REST employees resource and an upload target from one TLS server. Every
// hostname resolves to it through the client built by install.
type fakeShareFile struct {
	srv *httptest.Server

	mu          sync.Mutex
	tokenCalls  int
	tokenStatus int
	users       map[string]string // email -> id
	calls       []string          // "endpoint/op"
	uploads     map[string][]byte // filename -> body
}

func newFakeShareFile(t *testing.T) *fakeShareFile {
	t.Helper()

	f := &fakeShareFile{
		tokenStatus: http.StatusOK,
		users:       map[string]string{"ada@acme.com": "u1", "hold@acme.com": "u9"},
		uploads:     make(map[string][]byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", f.handleToken)
	mux.HandleFunc("/rest/", f.handleLegacy)
	mux.HandleFunc("/sf/v3/Accounts/Employees", f.handleEmployees)
	mux.HandleFunc("/upload-target", f.handleUpload)

	f.srv = httptest.NewTLSServer(mux)
	t.Cleanup(f.srv.Close)

	return f
}

// install routes newHTTPClient to the fake server and silences logging.
func (f *fakeShareFile) install(t *testing.T) {
	t.Helper()

	oldClient := newHTTPClient
	oldLog := logOutput

	t.Cleanup(func() {
		newHTTPClient = oldClient
		logOutput = oldLog
	})

	addr := f.srv.Listener.Addr().String()
	logOutput = io.Discard

	newHTTPClient = func(cfg *config.Config) *http.Client {
		tr := f.srv.Client().Transport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // test server
		tr.DialContext = func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		}

		return &http.Client{Transport: tr, Timeout: cfg.Timeout()}
	}
}

func (f *fakeShareFile) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
}

func (f *fakeShareFile) called(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.calls {
		if c == call {
			return true
		}
	}

	return false
}

func (f *fakeShareFile) setTokenStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokenStatus = code
}

func (f *fakeShareFile) tokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.tokenCalls
}

func (f *fakeShareFile) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.tokenCalls++
	status := f.tokenStatus
	f.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, `{"error":"invalid_grant"}`, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"access_token": testToken,
		"token_type":   "bearer",
		"expires_in":   28800,
		"subdomain":    "acme",
		"apicp":        "sharefile.com",
	})
}

func (f *fakeShareFile) handleLegacy(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/rest/"), ".aspx")
	q := r.URL.Query()

	if endpoint == "getAuthID" {
		writeJSON(w, map[string]any{"error": false, "value": testAuthID})

		return
	}

	if q.Get("authid") != testAuthID {
		writeJSON(w, map[string]any{"error": true, "errorMessage": "not authenticated", "errorCode": 401})
		return
	}

	op := q.Get("op")
	f.record(endpoint + "/" + op)

	switch endpoint + "/" + op {
	case "users/get":
		f.mu.Lock()
		id, ok := f.users[q.Get("id")]
		f.mu.Unlock()

		if !ok {
			writeJSON(w, map[string]any{"error": true, "errorMessage": "user not found", "errorCode": 404})
			return
		}

		writeJSON(w, map[string]any{"error": false, "value": map[string]string{
			"id": id, "primaryemail": q.Get("id"), "firstname": "Ada", "lastname": "Lovelace", "company": "Acme",
		}})
	case "users/create":
		writeJSON(w, map[string]any{"error": false, "value": map[string]string{
			"id": "u42", "primaryemail": q.Get("email"), "firstname": q.Get("firstname"), "lastname": q.Get("lastname"),
		}})
	case "users/delete", "users/deletef", "users/edit", "folder/delete":
		writeJSON(w, map[string]any{"error": false, "value": true})
	case "folder/list":
		writeJSON(w, map[string]any{"error": false, "value": []map[string]any{
			{"id": "fo1", "parentid": testHomeID, "displayname": "Reports", "type": "folder", "size": 2048, "creatorname": "Ada"},
		}})
	case "file/upload":
		ticket := "https://" + testHost + "/upload-target?uploadid=" + testUploadID + "&folder=" + q.Get("folderid")
		writeJSON(w, map[string]any{"error": false, "value": ticket})
	default:
		writeJSON(w, map[string]any{"error": true, "errorMessage": "unknown op", "errorCode": 400})
	}
}

func (f *fakeShareFile) handleEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	f.record("rest/employees")

	writeJSON(w, map[string]any{
		"odata.count": 2,
		"value": []map[string]string{
			{"Id": "u1", "Email": "ada@acme.com", "FirstName": "Ada", "LastName": "Lovelace", "Company": "Acme"},
			{"Id": "u2", "Email": "bob@acme.com", "FirstName": "Bob", "LastName": "Builder", "Company": "Acme"},
		},
	})
}

func (f *fakeShareFile) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	if q.Get("uploadid") != testUploadID || q.Get("raw") != "1" {
		http.Error(w, "bad ticket", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.uploads[q.Get("folder")+"/"+q.Get("filename")] = body
	f.mu.Unlock()

	_, _ = w.Write([]byte("OK"))
}

func (f *fakeShareFile) uploaded(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.uploads[key]

	return b, ok
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// cliEnv holds the per-test state directory and config path.
type cliEnv struct {
	fake     *fakeShareFile
	stateDir string
	cfgPath  string
}

// newCLIEnv starts a fake server, installs it and sets the account variables.
// Tests using it must not run in parallel: the CLI binds global flags.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	f := newFakeShareFile(t)
	f.install(t)

	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvHost, testHost)
	t.Setenv(config.EnvClientID, "cid")
	t.Setenv(config.EnvClientSecret, "csecret")
	t.Setenv(config.EnvUsername, testUser)
	t.Setenv(config.EnvPassword, "pw")
	t.Setenv(config.EnvCompany, "Acme")
	t.Setenv(config.EnvDomain, "acme.com")

	dir := t.TempDir()

	return &cliEnv{
		fake:     f,
		stateDir: filepath.Join(dir, "state"),
		cfgPath:  filepath.Join(dir, "missing.toml"),
	}
}

// run executes the CLI with args and returns stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.cfgPath, "--state-dir", e.stateDir, "--quiet"}, args...))

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

// mustRun is run that fails the test on error.
func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()

	out, err := e.run(t, args...)
	require.NoError(t, err, "sharefile-go %s", strings.Join(args, " "))

	return out
}
