package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchPIDPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/state", "watch.pid"), watchPIDPath("/state"))
	assert.Empty(t, watchPIDPath(""))
}

func TestWritePIDFile_CreatesFileWithCurrentPID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watch.pid")

	cleanup, err := writePIDFile(path)
	require.NoError(t, err)
	require.NotNil(t, cleanup)

	defer cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestWritePIDFile_FlockPreventsSecondWatcher(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watch.pid")

	cleanup1, err := writePIDFile(path)
	require.NoError(t, err)

	defer cleanup1()

	cleanup2, err := writePIDFile(path)
	require.Error(t, err)
	assert.Nil(t, cleanup2)
	assert.Contains(t, err.Error(), "already running")
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))
}

func TestWritePIDFile_CleanupRemovesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watch.pid")

	cleanup, err := writePIDFile(path)
	require.NoError(t, err)

	cleanup()

	assert.NoFileExists(t, path)

	// The lock is free again.
	cleanup, err = writePIDFile(path)
	require.NoError(t, err)
	cleanup()
}

func TestWritePIDFile_StalePIDFileIsReplaced(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watch.pid")

	// A watcher that crashed leaves its PID behind but not its lock.
	require.NoError(t, os.WriteFile(path, []byte("99999\n"), 0o600))

	cleanup, err := writePIDFile(path)
	require.NoError(t, err)

	defer cleanup()

	pid, err := readPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.FileExists(t, path+lockSuffix)
}

func TestWritePIDFile_EmptyPathReturnsError(t *testing.T) {
	t.Parallel()

	cleanup, err := writePIDFile("")
	require.Error(t, err)
	assert.Nil(t, cleanup)
	assert.Contains(t, err.Error(), "empty")
}

func TestWritePIDFile_CreatesParentDirectories(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state", "watch.pid")

	cleanup, err := writePIDFile(path)
	require.NoError(t, err)

	defer cleanup()

	assert.FileExists(t, path)
}

func TestReadPIDFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.pid")
	require.NoError(t, os.WriteFile(valid, []byte("12345\n"), 0o600))

	pid, err := readPIDFile(valid)
	require.NoError(t, err)
	assert.Equal(t, 12345, pid)

	invalid := filepath.Join(dir, "invalid.pid")
	require.NoError(t, os.WriteFile(invalid, []byte("not-a-pid\n"), 0o600))

	_, err = readPIDFile(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PID")

	_, err = readPIDFile(filepath.Join(dir, "missing.pid"))
	assert.Error(t, err)
}
