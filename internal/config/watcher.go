package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce absorbs the bursts of write events editors and atomic saves
// produce for a single logical change.
const reloadDebounce = 250 * time.Millisecond

// WatchSettings reloads the settings file whenever it changes on disk. It
// blocks until the context is cancelled.
func WatchSettings(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file, which would drop a watch
	// registered on the file itself.
	if err := watcher.Add(filepath.Dir(settingsFilePath)); err != nil {
		return err
	}

	target := filepath.Clean(settingsFilePath)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				log.Debug("Settings file changed, reloading")
				ReadSettings()
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("Settings watcher error", "error", err)
		}
	}
}
