// Package watch drives rebuilds from filesystem events on the script
// source trees.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Callback is called with the batch of changed paths once the debounce
// window closes.
type Callback func(paths []string)

// Watch starts an fsnotify watcher over roots and invokes cb with batched
// changes until ctx is cancelled. Events arriving within the debounce window
// coalesce into a single callback, so a save-all in an editor causes one
// rebuild, not ten.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events fire on the old path only; the new path arrives as a
// separate Create event, and both end up in the same batch.
func Watch(ctx context.Context, roots []string, debounce time.Duration, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range roots {
		if err := addDirsRecursive(w, root); err != nil {
			return err
		}
	}

	logger.Info("watcher: started",
		slog.Int("roots", len(roots)),
		slog.Duration("debounce", debounce))

	pending := make(map[string]struct{})

	// flushTimer debounces the rebuild callback.
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	scheduleFlush := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})
			logger.Info("watcher: changes detected", slog.Int("files", len(paths)))
			if cb != nil {
				cb(paths)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// --- Handle new directories: add to watcher ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if ignored(absPath) {
						continue
					}
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// The directory may already carry files (e.g. a move).
					pending[absPath] = struct{}{}
					scheduleFlush()
					continue
				}
			}

			if ignored(absPath) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			logger.Debug("watcher: event",
				slog.String("path", absPath),
				slog.String("op", ev.Op.String()))
			pending[absPath] = struct{}{}
			scheduleFlush()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// ignored filters out editor droppings and hidden files so saves of
// .greet.ts.swp or foo.ts~ do not trigger rebuilds.
func ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") {
		return true
	}
	switch filepath.Ext(base) {
	case ".swp", ".swx", ".tmp":
		return true
	}
	return false
}

// addDirsRecursive adds root and all its subdirectories to the watcher,
// skipping hidden directories.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
