package fixtures

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long the file must stay unchanged before reloading.
const DefaultSettleDelay = 500 * time.Millisecond

// ErrAlreadyWatching is returned by Watch when a watcher is running.
var ErrAlreadyWatching = errors.New("fixtures: already watching")

// watcher reloads a catalog when its file settles after a change.
type watcher struct {
	catalog *Catalog
	fsw     *fsnotify.Watcher
	settle  time.Duration

	mu      sync.Mutex // protects the pending fields and stopped
	timer   *time.Timer
	size    int64
	modTime time.Time
	stopped bool

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// Watch starts reloading the catalog whenever its file changes. The watch is
// in place when Watch returns; it ends when ctx is done or Close is called.
//
// Editors often save by writing a temp file and renaming it over the
// original, so the parent directory is watched rather than the file.
func (c *Catalog) Watch(ctx context.Context, settle time.Duration) error {
	if c.path == "" {
		return ErrNoFile
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if c.watch != nil {
		return ErrAlreadyWatching
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(c.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(c.path), err)
	}

	w := &watcher{
		catalog: c,
		fsw:     fsw,
		settle:  settle,
		done:    make(chan struct{}),
	}
	c.watch = w

	w.wg.Add(1)
	go w.processEvents(ctx)

	c.logger.Info("watching fixture catalog", "path", c.path, "settle_delay", settle)
	return nil
}

func (w *watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			w.detach()
			_ = w.shutdown()
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.catalog.logger.Warn("fixture watcher error", "error", err)
		}
	}
}

func (w *watcher) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.catalog.path {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		// A replacement usually follows as a Create.
		w.cancelPending()
		w.catalog.logger.Debug("fixture file moved or removed, keeping current catalog", "path", event.Name)
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		w.startSettling()
	}
}

// startSettling (re)arms the settle timer with the file's current state.
func (w *watcher) startSettling() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}

	info, err := os.Stat(w.catalog.path)
	if err != nil {
		w.timer = nil
		return
	}

	w.size = info.Size()
	w.modTime = info.ModTime()
	w.timer = time.AfterFunc(w.settle, w.checkSettled)
}

// checkSettled reloads once size and mtime stop changing.
func (w *watcher) checkSettled() {
	w.mu.Lock()
	if w.stopped || w.timer == nil {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(w.catalog.path)
	if err != nil {
		w.timer = nil
		w.mu.Unlock()
		return
	}

	if info.Size() != w.size || !info.ModTime().Equal(w.modTime) {
		w.size = info.Size()
		w.modTime = info.ModTime()
		w.timer = time.AfterFunc(w.settle, w.checkSettled)
		w.mu.Unlock()
		return
	}

	w.timer = nil
	w.mu.Unlock()

	// Reload logs its own failures.
	_ = w.catalog.Reload()
}

func (w *watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// detach clears the catalog's reference so a later Watch can start again.
func (w *watcher) detach() {
	c := w.catalog
	c.watchMu.Lock()
	if c.watch == w {
		c.watch = nil
	}
	c.watchMu.Unlock()
}

// shutdown releases the watcher's resources without waiting for the event
// loop, so the loop itself may call it.
func (w *watcher) shutdown() error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.mu.Unlock()

		close(w.done)
		w.stopErr = w.fsw.Close()
	})
	return w.stopErr
}

func (w *watcher) stop() error {
	err := w.shutdown()
	w.wg.Wait()
	return err
}
