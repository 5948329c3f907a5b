package filter

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 250 * time.Millisecond

// WatchDir reloads dir into the catalog whenever one of its filter files
// changes, until ctx is cancelled. A broken file is logged and the previous
// definitions stay active.
func (c *Catalog) WatchDir(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	c.logger.Info("watching filter directory", "dir", dir)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ".json" || ev.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(reloadDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("filter watcher error", "error", err)

		case <-timer.C:
			if err := c.ReloadDir(dir); err != nil {
				c.logger.Warn("filter reload failed", "dir", dir, "error", err)
				continue
			}
			c.logger.Info("filters reloaded", "dir", dir, "count", c.Count())
		}
	}
}
