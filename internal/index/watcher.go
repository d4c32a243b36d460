package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 200 * time.Millisecond

// EventCallback is called after a watcher-driven re-index, once the document
// content actually changed.
type EventCallback func()

// Watch starts an fsnotify watcher on the directory holding the document at
// absPath and re-syncs the index until ctx is cancelled. The directory is
// watched rather than the file so that editors (and our own atomic writes)
// that replace the file by rename keep being observed.
//
// Bursts of events are debounced. cb (if non-nil) runs only when Sync reports
// a content change, so writes made through the application and already
// synced do not fire it again.
func Watch(ctx context.Context, db TodoIndex, doc Source, absPath string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir, name := filepath.Split(absPath)
	if err := w.Add(filepath.Clean(dir)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", absPath))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			changed, syncErr := Sync(db, doc, logger)
			if syncErr != nil {
				logger.Warn("watcher: sync failed", slog.String("error", syncErr.Error()))
				continue
			}
			if changed {
				logger.Info("watcher: document changed on disk", slog.String("path", absPath))
				if cb != nil {
					cb()
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				logger.Debug("watcher: event", slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
