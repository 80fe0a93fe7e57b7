// Package tokenfile persists the OAuth token of one ShareFile account between
// CLI runs. A token file records which hostname and username the token was
// issued for, so a token is never replayed against a different account.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// FilePerms restricts token files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the tokens directory.
const DirPerms = 0o700

// ErrAccountMismatch is returned by LoadFor when the file belongs to a
// different hostname or username.
var ErrAccountMismatch = errors.New("tokenfile: token belongs to a different account")

// Entry is the on-disk format. Meta carries provider fields that
// oauth2.Token cannot hold (subdomain, apicp).
type Entry struct {
	Hostname string            `json:"hostname"`
	Username string            `json:"username"`
	SavedAt  time.Time         `json:"saved_at"`
	Token    *oauth2.Token     `json:"token"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Load reads a token file. Returns (nil, nil) if the file does not exist.
func Load(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if e.Token == nil {
		return nil, fmt.Errorf("tokenfile: %s missing token field (re-login required)", path)
	}

	return &e, nil
}

// LoadFor reads a token file and checks that it was saved for hostname and
// username. Returns (nil, nil) if the file does not exist.
func LoadFor(path, hostname, username string) (*Entry, error) {
	e, err := Load(path)
	if err != nil || e == nil {
		return e, err
	}

	if !strings.EqualFold(e.Hostname, hostname) || !strings.EqualFold(e.Username, username) {
		return nil, fmt.Errorf("%w: %s is for %s on %s", ErrAccountMismatch, path, e.Username, e.Hostname)
	}

	return e, nil
}

// Save writes a token file atomically (write-to-temp + rename) with 0600
// permissions. SavedAt is stamped when zero. Never logs token values.
func Save(path string, e *Entry) error {
	if e == nil || e.Token == nil {
		return fmt.Errorf("tokenfile: refusing to save an empty token")
	}

	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Remove deletes the token file. It reports whether a file was removed; a
// missing file is not an error.
func Remove(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return true, nil
}
