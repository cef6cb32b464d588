package config

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/hazyhaar/goclode/internal/coreerr"
)

// Watch watches the project's config file for external writes (e.g. a hand
// edit in another editor) and calls onChange whenever one lands, until ctx
// is done.
func Watch(ctx context.Context, directory string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return coreerr.IO("fsnotify.NewWatcher", err)
	}

	if err := watcher.Add(directory); err != nil {
		watcher.Close()
		return coreerr.IO("watch config directory", err)
	}

	path := projectPath(directory)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name == path && event.Op&fsnotify.Write == fsnotify.Write {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return nil
}
