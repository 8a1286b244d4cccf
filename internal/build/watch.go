package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 300 * time.Millisecond

// Watch runs an initial build and then rebuilds on filesystem changes to
// the articles, templates, assets and images trees until ctx is cancelled.
// Rebuild failures are logged, not fatal; the previous output stays in
// place.
func (b *Builder) Watch(ctx context.Context) error {
	if err := b.Run(ctx); err != nil {
		b.Logger.Error("initial build failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer watcher.Close()

	for _, dir := range []string{
		b.Config.Paths.Articles,
		b.Config.Paths.Templates,
		b.Config.Paths.Assets,
		b.Config.Paths.Images,
	} {
		if dir == "" {
			continue
		}
		if err := addDirsRecursive(watcher, dir); err != nil {
			return err
		}
	}

	rebuildReq, trigger := newDebouncer()
	go b.rebuildWorker(ctx, rebuildReq)

	b.Logger.Info("watching for changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoreEvent(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = addDirsRecursive(watcher, ev.Name)
				}
			}
			b.Logger.Debug("file change detected", "path", ev.Name, "op", ev.Op.String())
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.Logger.Warn("watcher error", "error", err)
		}
	}
}

// newDebouncer coalesces bursts of filesystem events into one rebuild
// request.
func newDebouncer() (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	return rebuildReq, trigger
}

// rebuildWorker serializes rebuilds; changes arriving mid-build queue one
// followup run instead of piling up.
func (b *Builder) rebuildWorker(ctx context.Context, rebuildReq chan struct{}) {
	var mu sync.Mutex
	running := false
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-rebuildReq:
			mu.Lock()
			if running {
				pending = true
				mu.Unlock()
				continue
			}
			running = true
			mu.Unlock()

			b.Logger.Info("change detected, rebuilding")
			if err := b.Run(ctx); err != nil {
				b.Logger.Warn("rebuild failed", "error", err)
			}

			mu.Lock()
			running = false
			if pending {
				pending = false
				mu.Unlock()
				select {
				case rebuildReq <- struct{}{}:
				default:
				}
			} else {
				mu.Unlock()
			}
		}
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				return fmt.Errorf("watch add failed for %s: %w", path, err)
			}
		}
		return nil
	})
}

func ignoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	return strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx")
}
