// Package watcher provides recursive file system watching with debouncing.
// gamedex uses it to notice catalog files appearing, changing or vanishing
// under the library root so the loader can refresh the snapshot.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// IgnoreChecker filters the paths the watcher registers and forwards.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
}

// Watcher watches a library tree recursively and batches raw fsnotify
// events through a debouncer, since catalog updates tend to arrive as
// bursts (rsync runs, archive extractions).
type Watcher struct {
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	ignores   IgnoreChecker
	root      string
	logger    *slog.Logger
}

// NewWatcher creates a recursive watcher on the library root. All
// non-ignored subdirectories are registered; debounce sets the quiet period
// before a batch of events is delivered.
func NewWatcher(rootDir string, debounce time.Duration, ignores IgnoreChecker, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:        fs,
		debouncer: NewDebouncer(debounce),
		ignores:   ignores,
		root:      rootDir,
		logger:    logger,
	}

	if err := w.watchTree(rootDir); err != nil {
		fs.Close()
		return nil, err
	}
	return w, nil
}

// watchTree registers dir and every non-ignored directory below it.
// Unreadable entries are skipped so one bad mount point does not take the
// whole watcher down.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignores.ShouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if watchErr := w.fs.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
}

// Events returns the channel that receives debounced event batches.
func (w *Watcher) Events() <-chan []DebouncedEvent {
	return w.debouncer.Output()
}

// Start begins listening for file system events. Call this in a goroutine.
// It runs until the watcher is closed.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent converts one fsnotify event into a debounced event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// A created directory needs watches of its own, including any
	// subdirectories that came with it (a platform folder moved into the
	// library arrives fully populated). The creation itself is forwarded
	// because the new tree may already hold catalog files.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.ignores.ShouldIgnoreDir(path) {
				return
			}
			if err := w.watchTree(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			w.debouncer.Add(path, OpCreate)
			return
		}
	}

	if w.ignores.ShouldIgnore(path) {
		return
	}
	if op, ok := opFor(event); ok {
		w.debouncer.Add(path, op)
	}
}

// opFor maps an fsnotify event to the debounced operation, preferring
// creation over the write events that follow it in the same burst.
func opFor(event fsnotify.Event) (EventOp, bool) {
	switch {
	case event.Has(fsnotify.Create):
		return OpCreate, true
	case event.Has(fsnotify.Write):
		return OpWrite, true
	case event.Has(fsnotify.Remove):
		return OpRemove, true
	case event.Has(fsnotify.Rename):
		return OpRename, true
	default:
		return 0, false
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
