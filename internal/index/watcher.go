package index

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a Memory index when its snapshot file changes on disk.
// A snapshot that fails to load is logged and the current index is kept.
type Watcher struct {
	path     string
	index    *Memory
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
}

func NewWatcher(path string, index *Memory, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}

	// watch the directory: the snapshot is replaced by rename
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch snapshot dir: %w", err)
	}

	return &Watcher{
		path:     abs,
		index:    index,
		debounce: debounce,
		watcher:  w,
		logger:   logger,
	}, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("snapshot watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	snap, err := LoadSnapshot(w.path)
	if err != nil {
		w.logger.Error("reload index snapshot, keeping previous index",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}

	if err := w.index.Replace(snap); err != nil {
		w.logger.Error("replace index contents", zap.Error(err))
		return
	}

	w.logger.Info("index snapshot reloaded",
		zap.String("path", w.path),
		zap.String("model", snap.Model),
		zap.Int("chunks", len(snap.Chunks)),
	)
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
