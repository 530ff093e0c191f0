package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const reloadDebounce = 500 * time.Millisecond

// Watch reloads c from the YAML file at path whenever the file changes,
// until ctx is done. A file that fails to parse leaves c untouched.
func Watch(ctx context.Context, path string, c *Catalog, log logrus.FieldLogger) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	log = log.WithField("catalog", absPath)
	filename := filepath.Base(absPath)

	reload := func() {
		next, err := LoadFile(absPath)
		if err != nil {
			log.WithError(err).Warn("catalog reload failed; keeping previous drinks")
			return
		}
		c.Replace(next)
		log.WithField("drinks", len(next.Drinks())).Info("catalog reloaded")
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("catalog watcher error")
			}
		}
	}()
	return nil
}
