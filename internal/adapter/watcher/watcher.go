// Package watcher keeps the library in step with the folders it was scanned from.
// New supported files are ingested and deleted files leave the library.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/service"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle.
const DefaultDebounce = 500 * time.Millisecond

// Library is the part of the library the watcher drives.
type Library interface {
	Ingest(ctx context.Context, paths []string) (service.IngestResult, error)
	GetByPath(path string) (domain.TrackRecord, bool)
	Remove(ctx context.Context, ids []string) error
}

// Watcher watches directory trees and applies file changes to a Library in batches.
type Watcher struct {
	fs       *fsnotify.Watcher
	library  Library
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	added   map[string]struct{}
	removed map[string]struct{}
}

// New creates a watcher. A zero debounce uses DefaultDebounce.
func New(logger *slog.Logger, library Library, debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		fs:       w,
		library:  library,
		logger:   logger.With(slog.String("component", "watcher")),
		debounce: debounce,
		added:    make(map[string]struct{}),
		removed:  make(map[string]struct{}),
	}, nil
}

// Add watches root and every directory below it.
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return err
		}
		w.logger.Debug("watching", slog.String("dir", path))
		return nil
	})
}

// Watched returns the watched directories.
func (w *Watcher) Watched() []string {
	list := w.fs.WatchList()
	slices.Sort(list)
	return list
}

// Run processes events until ctx is done or the watcher is closed.
// Pending changes are flushed before it returns.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flush(context.WithoutCancel(ctx))
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				w.flush(ctx)
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				w.flush(ctx)
				return nil
			}
			w.logger.Warn("watch error", slog.Any("error", err))

		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// Close stops watching. Run returns once the event channel drains.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// handle records one event and reports whether a flush is needed.
func (w *Watcher) handle(event fsnotify.Event) bool {
	path := event.Name

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.IsDir() {
			// Files created before the watch was registered are collected here
			if err := w.Add(path); err != nil {
				w.logger.Warn("failed to watch directory", slog.String("dir", path), slog.Any("error", err))
			}
			return w.markTree(path)
		}
		return w.mark(path, true)

	case event.Has(fsnotify.Write):
		return w.mark(path, true)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return w.mark(path, false)
	}
	return false
}

func (w *Watcher) mark(path string, added bool) bool {
	if !domain.IsSupportedTrack(path) {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if added {
		delete(w.removed, path)
		w.added[path] = struct{}{}
	} else {
		delete(w.added, path)
		w.removed[path] = struct{}{}
	}
	return true
}

func (w *Watcher) markTree(root string) bool {
	found := false
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && w.mark(path, true) {
			found = true
		}
		return nil
	})
	return found
}

// flush applies the pending changes: removals first, then ingestion of files not yet indexed.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	added, removed := w.added, w.removed
	w.added = make(map[string]struct{})
	w.removed = make(map[string]struct{})
	w.mu.Unlock()

	if len(removed) > 0 {
		var ids []string
		for path := range removed {
			if record, ok := w.library.GetByPath(path); ok {
				ids = append(ids, record.ID)
			}
		}
		if len(ids) > 0 {
			if err := w.library.Remove(ctx, ids); err != nil {
				w.logger.Error("failed to remove deleted files", slog.Any("error", err))
			} else {
				w.logger.Info("removed deleted files", slog.Int("tracks", len(ids)))
			}
		}
	}

	var paths []string
	for path := range added {
		if _, ok := w.library.GetByPath(path); ok {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return
	}
	slices.Sort(paths)

	result, err := w.library.Ingest(ctx, paths)
	if err != nil && !errors.Is(err, domain.ErrScanCancelled) {
		w.logger.Error("failed to ingest new files", slog.Any("error", err))
		return
	}
	w.logger.Info("ingested new files",
		slog.Int("added", len(result.Added)),
		slog.Int("failed", len(result.Failed)))
}
