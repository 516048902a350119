// Package transport binds the out-of-band byte transport to the track
// store. Track bytes never pass through the ledger; a transport drops the
// finished file into a local spool directory named after the track id, and
// the watcher signals upload completion with the observed size.
package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"orpheus/core/tracks"
	"orpheus/logger"

	"github.com/fsnotify/fsnotify"
)

// SpoolWatcher watches a spool directory for completed track files.
type SpoolWatcher struct {
	dir     string
	store   *tracks.Store
	watcher *fsnotify.Watcher
}

// NewSpoolWatcher creates a watcher over dir, creating it if needed.
func NewSpoolWatcher(dir string, store *tracks.Store) (*SpoolWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch spool directory %s: %w", dir, err)
	}

	return &SpoolWatcher{dir: dir, store: store, watcher: watcher}, nil
}

// Run consumes filesystem events until ctx is done. A file named
// <trackID> (any extension) completes that track's upload; a file named
// <trackID>.failed fails it with the file content as reason.
func (w *SpoolWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	logger.Info("spool watcher started", logger.String("dir", w.dir))
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.handleFile(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("spool watcher error", logger.ErrorField(err))
		}
	}
}

func (w *SpoolWatcher) handleFile(ctx context.Context, path string) {
	base := filepath.Base(path)

	if strings.HasSuffix(base, ".failed") {
		trackID := strings.TrimSuffix(base, ".failed")
		reason := "transport reported failure"
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			reason = strings.TrimSpace(string(data))
		}
		if err := w.store.FailUpload(ctx, trackID, reason); err != nil {
			logger.Warn("spool failure signal rejected",
				logger.String("trackId", trackID),
				logger.ErrorField(err))
		}
		return
	}

	trackID := strings.TrimSuffix(base, filepath.Ext(base))
	info, err := os.Stat(path)
	if err != nil {
		logger.Warn("failed to stat spooled file", logger.String("path", path), logger.ErrorField(err))
		return
	}
	if info.IsDir() {
		return
	}

	// Duration is probed out of band; 0 means unknown.
	if err := w.store.CompleteUpload(ctx, trackID, info.Size(), 0); err != nil {
		logger.Warn("spool completion signal rejected",
			logger.String("trackId", trackID),
			logger.ErrorField(err))
		return
	}

	logger.Info("upload completed from spool",
		logger.String("trackId", trackID),
		logger.Int64("sizeBytes", info.Size()))
}
