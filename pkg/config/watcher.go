package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/compozy/specmatch/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

// Watcher notifies callbacks when a watched config file is written.
type Watcher struct {
	watcher   *fsnotify.Watcher
	log       logger.Logger
	callbacks []func()
	mu        sync.RWMutex
	watched   map[string]context.Context
	stopCh    chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewWatcher creates a new configuration file watcher.
func NewWatcher(log logger.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Watcher{
		watcher: fsWatcher,
		log:     log,
		watched: make(map[string]context.Context),
		stopCh:  make(chan struct{}),
	}, nil
}

// Watch starts watching path until ctx is canceled or the watcher closes.
func (w *Watcher) Watch(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := w.watcher.Add(absPath); err != nil {
		return fmt.Errorf("failed to watch file: %w", err)
	}
	w.mu.Lock()
	w.watched[absPath] = ctx
	w.mu.Unlock()
	go func() {
		select {
		case <-ctx.Done():
		case <-w.stopCh:
			return
		}
		w.mu.Lock()
		delete(w.watched, absPath)
		w.mu.Unlock()
		if err := w.watcher.Remove(absPath); err != nil {
			w.log.Debug("config watcher remove failed", "path", absPath, "error", err)
		}
	}()
	w.startOnce.Do(func() {
		go w.handleEvents()
	})
	return nil
}

// OnChange registers a callback invoked after every write to a watched file.
func (w *Watcher) OnChange(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

func (w *Watcher) handleEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.mu.RLock()
			pathCtx, watched := w.watched[event.Name]
			w.mu.RUnlock()
			if !watched || pathCtx.Err() != nil {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.notify()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) notify() {
	w.mu.RLock()
	callbacks := append([]func(){}, w.callbacks...)
	w.mu.RUnlock()
	for _, cb := range callbacks {
		if cb != nil {
			cb()
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var closeErr error
	w.closeOnce.Do(func() {
		close(w.stopCh)
		if err := w.watcher.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close watcher: %w", err)
		}
	})
	return closeErr
}
