package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-monolith/mono/pkg/types"
)

// Watch reloads path whenever it is written or replaced and passes the new
// Config to onChange. The parent directory is watched so atomic rename saves
// keep being seen. A reload that fails to parse or validate is logged and
// skipped, leaving the previous config active. It runs until ctx is cancelled.
func Watch(ctx context.Context, path string, logger types.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	logger.Info("Watching config for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			// Editors often save via rename, which shows up as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				logger.Error("Config reload failed, keeping previous config", "path", path, "error", err)
				continue
			}

			logger.Info("Config reloaded", "path", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Config watcher error", "error", err)
		}
	}
}
