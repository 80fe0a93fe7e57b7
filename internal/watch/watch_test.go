package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSettle  = 30 * time.Millisecond
	testTimeout = 5 * time.Second
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

// fakeWatcher feeds hand-built events into the watch loop.
type fakeWatcher struct {
	events chan fsnotify.Event
	errs   chan error
	added  []string
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		events: make(chan fsnotify.Event, 16),
		errs:   make(chan error, 16),
	}
}

func (f *fakeWatcher) Add(name string) error {
	f.added = append(f.added, name)
	return nil
}

func (f *fakeWatcher) Close() error { return nil }

func (f *fakeWatcher) Events() <-chan fsnotify.Event { return f.events }

func (f *fakeWatcher) Errors() <-chan error { return f.errs }

func startWatcher(t *testing.T, w *Watcher) (<-chan Event, context.CancelFunc, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Event, 16)
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx, out) }()

	// Wait for Run to return so nothing logs after the test ends.
	t.Cleanup(func() {
		cancel()

		for range out {
		}
	})

	return out, cancel, done
}

func receive(t *testing.T, out <-chan Event) Event {
	t.Helper()

	select {
	case ev, ok := <-out:
		require.True(t, ok, "output closed before an event arrived")
		return ev
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for watch event")
		return Event{}
	}
}

func TestRun_EmitsSettledFile(t *testing.T) {
	dir := t.TempDir()
	fw := newFakeWatcher()

	w := New(dir, testSettle, testLogger(t))
	w.newWatcher = func() (FsWatcher, error) { return fw, nil }

	out, cancel, done := startWatcher(t, w)

	path := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o600))
	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Write}

	ev := receive(t, out)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, "report.csv", ev.Name)
	assert.Equal(t, int64(4), ev.Size)
	assert.Equal(t, []string{dir}, fw.added)

	cancel()
	require.NoError(t, <-done)

	_, open := <-out
	assert.False(t, open, "Run closes its output")
}

func TestRun_SkipsExcludedRemovedAndDirectories(t *testing.T) {
	dir := t.TempDir()
	fw := newFakeWatcher()

	w := New(dir, testSettle, testLogger(t))
	w.newWatcher = func() (FsWatcher, error) { return fw, nil }

	out, _, _ := startWatcher(t, w)

	hidden := filepath.Join(dir, ".hidden")
	partial := filepath.Join(dir, "movie.mp4.partial")
	gone := filepath.Join(dir, "gone.txt")
	sub := filepath.Join(dir, "sub")
	keep := filepath.Join(dir, "keep.txt")

	require.NoError(t, os.WriteFile(hidden, nil, 0o600))
	require.NoError(t, os.WriteFile(partial, nil, 0o600))
	require.NoError(t, os.WriteFile(gone, nil, 0o600))
	require.NoError(t, os.Mkdir(sub, 0o700))

	fw.events <- fsnotify.Event{Name: hidden, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: partial, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: gone, Op: fsnotify.Create}
	fw.events <- fsnotify.Event{Name: gone, Op: fsnotify.Remove}
	fw.events <- fsnotify.Event{Name: sub, Op: fsnotify.Create}

	// keep.txt is sent last; it must be the only file emitted.
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o600))
	fw.events <- fsnotify.Event{Name: keep, Op: fsnotify.Create}

	ev := receive(t, out)
	assert.Equal(t, keep, ev.Path)

	select {
	case extra := <-out:
		t.Fatalf("unexpected event %+v", extra)
	case <-time.After(5 * testSettle):
	}
}

func TestRun_WatcherErrorDoesNotStopLoop(t *testing.T) {
	dir := t.TempDir()
	fw := newFakeWatcher()

	w := New(dir, testSettle, testLogger(t))
	w.newWatcher = func() (FsWatcher, error) { return fw, nil }

	out, _, _ := startWatcher(t, w)

	fw.errs <- errors.New("queue overflow")

	path := filepath.Join(dir, "after-error.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	fw.events <- fsnotify.Event{Name: path, Op: fsnotify.Create}

	assert.Equal(t, path, receive(t, out).Path)
}

func TestRun_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	out := make(chan Event)
	err := New(file, testSettle, testLogger(t)).Run(context.Background(), out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestRun_MissingDirectory(t *testing.T) {
	out := make(chan Event)
	err := New(filepath.Join(t.TempDir(), "nope"), testSettle, testLogger(t)).Run(context.Background(), out)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_RealFsnotify(t *testing.T) {
	dir := t.TempDir()

	out, _, _ := startWatcher(t, New(dir, testSettle, testLogger(t)))

	// Give the watcher time to register before the file appears.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "dropped.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	ev := receive(t, out)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, int64(5), ev.Size)
}

func TestNew_DefaultSettle(t *testing.T) {
	w := New(t.TempDir(), 0, nil)
	assert.Equal(t, DefaultSettle, w.settle)
	assert.NotNil(t, w.logger)
}

func TestIsExcluded(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", false},
		{".DS_Store", true},
		{"~$budget.xlsx", true},
		{"video.CRDOWNLOAD", true},
		{"notes.swp", true},
		{"data.tmp", true},
		{"archive.tar.gz", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isExcluded(tt.name), tt.name)
	}
}
