package registry

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 250 * time.Millisecond

// Watch refreshes the registry every interval and, when path is set, on
// changes to the catalog file. It blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context, path string, interval time.Duration) error {
	var events <-chan fsnotify.Event
	var errs <-chan error

	if path != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer w.Close()

		// Editors often replace the file, so watch its directory.
		if err := w.Add(filepath.Dir(path)); err != nil {
			return err
		}
		events, errs = w.Events, w.Errors
	}

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debounce := time.NewTimer(debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			r.logger.Debug("catalog change detected", "path", path)
			debounce.Reset(debounceDelay)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Warn("catalog watch error", "error", err)
		case <-debounce.C:
			r.refresh(ctx)
		case <-tick:
			r.refresh(ctx)
		}
	}
}

func (r *Registry) refresh(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Error("registry refresh failed", "error", err)
	}
}
