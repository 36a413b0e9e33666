package roster

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch calls onChange every time one of the files in paths is written or
// replaced. It runs until ctx is done. The directories of the files are watched
// so that editors which save through a rename are noticed too.
func Watch(ctx context.Context, onChange func(path string), paths ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		watched[abs] = struct{}{}

		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return err
		}
		log.Info().Str("path", abs).Msg("watching roster file for changes")
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := watched[abs]; !ok {
				continue
			}

			log.Info().Str("path", abs).Msg("roster file changed")
			onChange(abs)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("roster watcher error")
		}
	}
}
