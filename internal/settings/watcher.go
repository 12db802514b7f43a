package settings

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/taka-sakai/dehistory/pkg/log"
)

// reloadDebounce coalesces bursts of write events into a single reload.
const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the settings store when another process (the settings
// editor) rewrites the storage file. Triggers that must see fresh settings
// still reload explicitly; the watcher only keeps the steady state current.
type Watcher struct {
	store  *Store
	path   string
	logger log.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher for the storage file at path.
func NewWatcher(store *Store, path string, logger log.Logger) *Watcher {
	return &Watcher{store: store, path: path, logger: logger}
}

// Run watches the storage file's directory until the context is cancelled.
// Watch setup failures are logged and leave the store on explicit reloads
// only; a watcher failure never takes the daemon down.
func (w *Watcher) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("settings watcher unavailable", log.Err(err))
		return
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors and atomic writers replace
	// the file by rename, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Warn("settings watcher unavailable", log.String("path", w.path), log.Err(err))
		return
	}

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(reloadDebounce, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.store.Load(ctx); err != nil {
			w.logger.Warn("settings reload failed", log.Err(err))
			return
		}
		w.logger.Info("settings reloaded after external change", log.String("path", w.path))
	})
}
