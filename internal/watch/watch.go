// Package watch turns filesystem notifications for a drop directory into a
// stream of files that are ready to upload. A file is ready once it has seen
// no create or write events for the settle period.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/unicode/norm"
)

// DefaultSettle is how long a file must stay quiet before it is emitted.
const DefaultSettle = 2 * time.Second

const (
	errInitBackoff = 100 * time.Millisecond
	errMaxBackoff  = 5 * time.Second
	errBackoffMult = 2
)

// Event is a settled regular file in the watched directory.
type Event struct {
	Path string
	Name string // NFC-normalized base name
	Size int64
}

// FsWatcher is the subset of *fsnotify.Watcher the watch loop needs.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f fsnotifyWatcher) Add(name string) error { return f.w.Add(name) }

func (f fsnotifyWatcher) Close() error { return f.w.Close() }

func (f fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }

func (f fsnotifyWatcher) Errors() <-chan error { return f.w.Errors }

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return fsnotifyWatcher{w: w}, nil
}

// Watcher watches one directory (not recursively).
type Watcher struct {
	dir        string
	settle     time.Duration
	logger     *slog.Logger
	newWatcher func() (FsWatcher, error)
	nowFunc    func() time.Time
}

// New returns a Watcher for dir. A non-positive settle uses DefaultSettle.
func New(dir string, settle time.Duration, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		dir:        dir,
		settle:     settle,
		logger:     logger,
		newWatcher: newFsnotifyWatcher,
		nowFunc:    time.Now,
	}
}

// Run emits settled files on out until ctx is cancelled. It closes out on
// return. Files already present when Run starts are not emitted.
func (w *Watcher) Run(ctx context.Context, out chan<- Event) error {
	defer close(out)

	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("watch: %s is not a directory", w.dir)
	}

	fw, err := w.newWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: adding %s: %w", w.dir, err)
	}

	w.logger.Info("watching directory",
		slog.String("dir", w.dir),
		slog.Duration("settle", w.settle),
	)

	return w.loop(ctx, fw, out)
}

// loop is the select loop for Run. pending maps a path to the time of its
// most recent create/write event.
func (w *Watcher) loop(ctx context.Context, fw FsWatcher, out chan<- Event) error {
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	errBackoff := errInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}

			w.handle(ev, pending)
			errBackoff = errInitBackoff

		case watchErr, ok := <-fw.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if !sleep(ctx, errBackoff) {
				return nil
			}

			errBackoff = min(errBackoff*errBackoffMult, errMaxBackoff)

		case <-ticker.C:
			if !w.flush(ctx, pending, out) {
				return nil
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, pending map[string]time.Time) {
	name := filepath.Base(ev.Name)
	if isExcluded(name) {
		w.logger.Debug("watch: skipping excluded file", slog.String("name", name))
		return
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		pending[ev.Name] = w.nowFunc()
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(pending, ev.Name)
	}
}

// flush emits every pending file that has been quiet for the settle period.
// It returns false if ctx ended while sending.
func (w *Watcher) flush(ctx context.Context, pending map[string]time.Time, out chan<- Event) bool {
	now := w.nowFunc()

	for path, last := range pending {
		if now.Sub(last) < w.settle {
			continue
		}

		delete(pending, path)

		info, err := os.Stat(path)
		if err != nil {
			w.logger.Debug("stat failed for settled path",
				slog.String("path", path), slog.String("error", err.Error()))

			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}

		ev := Event{Path: path, Name: norm.NFC.String(filepath.Base(path)), Size: info.Size()}

		select {
		case out <- ev:
		case <-ctx.Done():
			return false
		}
	}

	return true
}

// isExcluded reports names that are never uploaded: hidden files, editor
// temporaries and partial downloads.
func isExcluded(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return true
	}

	lower := strings.ToLower(name)
	for _, ext := range excludedSuffixes {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	return false
}

var excludedSuffixes = []string{".partial", ".tmp", ".swp", ".crdownload"}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
