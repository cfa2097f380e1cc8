package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches the styles file for changes and reloads the registry.
// Events are debounced so editors that write in several steps trigger a
// single reload.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   *slog.Logger
	onReload func() error
}

// NewFileWatcher creates a watcher for the given styles file. onReload is
// called after changes settle; a reload error is logged and the previous
// descriptor table stays in effect.
func NewFileWatcher(path string, onReload func() error) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory rather than the file so atomic rename-based
	// saves keep being observed.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	return &FileWatcher{
		watcher:  watcher,
		path:     path,
		debounce: 200 * time.Millisecond,
		logger:   slog.Default().With("component", "registry.watcher"),
		onReload: onReload,
	}, nil
}

// Watch blocks until the context is cancelled, reloading on file changes.
func (fw *FileWatcher) Watch(ctx context.Context) error {
	defer fw.watcher.Close()

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(fw.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Debounce: reset the timer on every event in the burst.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(fw.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("watch error", "error", err)

		case <-reload:
			fw.logger.Info("styles file changed, reloading", "path", fw.path)
			if err := fw.onReload(); err != nil {
				fw.logger.Error("reload failed, keeping previous styles", "error", err)
			}
		}
	}
}
