package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after an inbox change.
// kind is one of "created" or "removed".
type EventCallback func(kind string, filename string)

// Watch starts an fsnotify watcher on the inbox directory and reports
// Markdown file arrivals and departures until ctx is cancelled. It
// calls cb (if non-nil) for each event.
//
// A rename counts as removal of the old name; if the file reappears
// under a new name inside the inbox, that arrival produces its own
// create event.
func Watch(ctx context.Context, dir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("inbox watcher: started", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("inbox watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".md") {
				continue
			}
			// Directories named *.md would be pathological; skip them.
			if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				logger.Debug("inbox watcher: created", slog.String("filename", name))
				if cb != nil {
					cb("created", name)
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("inbox watcher: removed", slog.String("filename", name))
				if cb != nil {
					cb("removed", name)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
