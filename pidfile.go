package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

const (
	watchPIDFileName   = "watch.pid"
	lockSuffix         = ".lock"
	pidFilePermissions = 0o600
	pidDirPermissions  = 0o700
)

// watchPIDPath is the PID file that keeps one `upload --watch` per state
// directory. Its lock lives next to it in watch.pid.lock.
func watchPIDPath(stateDir string) string {
	if stateDir == "" {
		return ""
	}

	return filepath.Join(stateDir, watchPIDFileName)
}

// writePIDFile takes the exclusive lock beside path and writes the current
// process ID to path. The returned cleanup removes the PID file and releases
// the lock. The lock file itself stays so a later watcher locks the same inode.
func writePIDFile(path string) (cleanup func(), err error) {
	if path == "" {
		return nil, fmt.Errorf("PID file path is empty: no state directory")
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(path), pidDirPermissions); mkdirErr != nil {
		return nil, fmt.Errorf("creating PID file directory: %w", mkdirErr)
	}

	fl := flock.New(path + lockSuffix)

	// Non-blocking: a running watcher holds the lock for its whole lifetime.
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", fl.Path(), err)
	}

	if !locked {
		if pid, readErr := readPIDFile(path); readErr == nil {
			return nil, fmt.Errorf("another upload --watch is already running (PID %d)", pid)
		}

		return nil, fmt.Errorf("another upload --watch is already running (could not lock %s)", fl.Path())
	}

	pid := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(path, []byte(pid), pidFilePermissions); err != nil {
		_ = fl.Unlock()

		return nil, fmt.Errorf("writing PID file: %w", err)
	}

	return func() {
		os.Remove(path)
		_ = fl.Unlock()
	}, nil
}

// readPIDFile reads the PID stored at path.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in %s: %w", path, err)
	}

	return pid, nil
}
