package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent is one filesystem change to a Go source file.
type ChangeEvent struct {
	Path string
	Op   fsnotify.Op
}

// Watcher observes a workspace tree and delivers debounced batches of Go
// file changes. Rapid saves to the same file coalesce into a single event.
type Watcher struct {
	rootPath string
	debounce time.Duration
	logger   *slog.Logger
	notify   *fsnotify.Watcher
}

// NewWatcher sets up recursive watching under rootPath. Hidden directories
// and vendor trees are never watched.
func NewWatcher(rootPath string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		rootPath: rootPath,
		debounce: debounce,
		logger:   logger,
		notify:   notify,
	}
	if err := w.watchTree(rootPath); err != nil {
		_ = notify.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDir(d.Name()) && path != root {
			return filepath.SkipDir
		}
		return w.notify.Add(path)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor"
}

// Run consumes fsnotify events until ctx is cancelled. Relevant events are
// held for the debounce window, then flushed to out as one batch.
func (w *Watcher) Run(ctx context.Context, out chan<- []ChangeEvent) error {
	dirty := make(map[string]fsnotify.Op)
	timer := time.NewTimer(w.debounce)
	timer.Stop() // armed on the first relevant event

	flush := func() error {
		batch := make([]ChangeEvent, 0, len(dirty))
		for path, op := range dirty {
			batch = append(batch, ChangeEvent{Path: path, Op: op})
		}
		dirty = make(map[string]fsnotify.Op)
		select {
		case out <- batch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case ev, ok := <-w.notify.Events:
			if !ok {
				return nil
			}
			if relevant(ev) {
				dirty[ev.Name] = ev.Op
				timer.Reset(w.debounce)
			}
			if ev.Op&fsnotify.Create != 0 {
				w.watchNewDir(ev.Name)
			}

		case err, ok := <-w.notify.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "err", err)

		case <-timer.C:
			if len(dirty) == 0 {
				continue
			}
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.notify.Close()
}

func relevant(ev fsnotify.Event) bool {
	if !strings.HasSuffix(ev.Name, ".go") {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// watchNewDir starts watching a directory created after the initial walk.
// Best effort: the path may be a file, a symlink, or already gone.
func (w *Watcher) watchNewDir(path string) {
	if skipDir(filepath.Base(path)) {
		return
	}
	if err := w.notify.Add(path); err != nil {
		w.logger.Debug("could not watch new path", "path", path, "err", err)
	}
}
