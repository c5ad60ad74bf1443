package pkg

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// WatchDataset calls onChange whenever path is written, replaced or removed, until
// ctx is done. The parent directory is watched so editors that save by rename are
// still seen.
func WatchDataset(ctx context.Context, path string, onChange func(path string)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("error resolving %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("error watching %s: %w", path, err)
	}

	const changed = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath || event.Op&changed == 0 {
				continue
			}
			log.Debug().Str("Path", absPath).Str("Op", event.Op.String()).Msg("Dataset changed")
			onChange(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Str("Path", absPath).Msg("File watcher error")
		}
	}
}

// Watch invalidates the cached tables of path on every change, until ctx is done.
func (p *Pipeline) Watch(ctx context.Context, path string) error {
	return WatchDataset(ctx, path, p.Invalidate)
}
