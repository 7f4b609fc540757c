package content

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the index whenever a content file under its directory
// changes. It blocks until ctx is cancelled.
func (x *StaticIndex) Watch(ctx context.Context, logger *zap.Logger) error {
	if x.dir == "" {
		return fmt.Errorf("watch static content: index has no directory")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch static content: %w", err)
	}
	defer w.Close()

	if err := addWatchDirs(w, x.dir); err != nil {
		return fmt.Errorf("watch static content: %w", err)
	}
	logger.Info("watching static content", zap.String("dir", x.dir))

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !hiddenDir(ev.Name) {
					if err := addWatchDirs(w, ev.Name); err != nil {
						logger.Warn("watch new content dir", zap.String("dir", ev.Name), zap.Error(err))
					}
					reload = time.After(reloadDebounce)
					continue
				}
			}
			if isContentFile(ev.Name) {
				reload = time.After(reloadDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("static content watcher", zap.Error(err))
		case <-reload:
			reload = nil
			if err := x.Reload(); err != nil {
				logger.Warn("reload static content", zap.Error(err))
				continue
			}
			logger.Info("static content reloaded", zap.Int("posts", len(x.Posts())))
		}
	}
}

func addWatchDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && hiddenDir(p) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func hiddenDir(p string) bool {
	return strings.HasPrefix(filepath.Base(p), ".")
}
