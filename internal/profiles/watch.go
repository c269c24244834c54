package profiles

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the registry whenever its file is written, replaced or
// renamed into place, until ctx is done. The parent directory is watched so
// editors that save through a temp file are seen too. A registry without a
// path is not watched.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration) error {
	path := r.Path()
	if path == "" {
		return nil
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Error("failed to create profiles watcher", "error", err)
		return err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		r.logger.Error("failed to watch profiles directory", "path", path, "error", err)
		return err
	}

	r.mu.Lock()
	r.watcher = w
	r.mu.Unlock()
	r.logger.Info("profiles.watch.started", "path", path)

	go func() {
		defer func() {
			r.mu.Lock()
			r.watcher = nil
			r.mu.Unlock()
			_ = w.Close()
		}()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) {
					continue
				}
				if filepath.Clean(e.Name) != filepath.Clean(r.Path()) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if err := r.Reload(); err != nil {
					r.logger.Error("profiles.reload.failed", "path", r.Path(), "error", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				r.logger.Warn("profiles.watch.error", "error", err)
			}
		}
	}()
	return nil
}
