package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/loglens/loglens/internal/logging"
)

// WatcherConfig holds configuration for the document watcher.
type WatcherConfig struct {
	// Dir is the docs directory to watch.
	Dir string

	// DebounceMillis coalesces bursts of file change events (editor
	// save sequences) into a single cache invalidation. Default: 500ms.
	DebounceMillis int
}

// Watcher invalidates the loader cache when a knowledge document
// changes, so edits take effect without a restart. Watching the
// directory rather than the files keeps atomic-save editors (unlink
// then rename) covered without re-adding watches.
//
// A watcher that fails to initialize logs and degrades to TTL-only
// cache behavior; it never fails the service.
type Watcher struct {
	config  WatcherConfig
	loader  *Loader
	cancel  context.CancelFunc
	stopped chan struct{}
	ready   chan struct{}
	logger  *logging.Logger
	mu      sync.Mutex

	debounceTimer *time.Timer
}

// NewWatcher creates a watcher for the loader's docs directory.
func NewWatcher(config WatcherConfig, loader *Loader) (*Watcher, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("Dir cannot be empty")
	}
	if loader == nil {
		return nil, fmt.Errorf("loader cannot be nil")
	}
	if config.DebounceMillis == 0 {
		config.DebounceMillis = 500
	}

	return &Watcher{
		config:  config,
		loader:  loader,
		stopped: make(chan struct{}),
		ready:   make(chan struct{}),
		logger:  logging.GetLogger("knowledge.watcher"),
	}, nil
}

// Start begins watching the docs directory and returns once the watch
// is installed (or has degraded). It does not block for the lifetime
// of the watcher.
func (w *Watcher) Start(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.watchLoop(watchCtx)

	select {
	case <-w.ready:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for file watcher to initialize")
	}

	return nil
}

// signalReady safely closes the ready channel exactly once.
func (w *Watcher) signalReady() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("Failed to create file watcher, document edits need a restart or cache expiry: %v", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(w.config.Dir); err != nil {
		w.logger.Warn("Failed to watch %s, document edits need a restart or cache expiry: %v", w.config.Dir, err)
		return
	}

	w.logger.Info("Watching %s for document changes (debounce: %dms)", w.config.Dir, w.config.DebounceMillis)
	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Context cancelled, stopping document watcher")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				w.logger.Debug("Watcher events channel closed")
				return
			}
			if !isKnowledgeDocument(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.handleFileChange(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				w.logger.Debug("Watcher errors channel closed")
				return
			}
			w.logger.Warn("Document watcher error: %v", err)
		}
	}
}

func isKnowledgeDocument(path string) bool {
	base := filepath.Base(path)
	return base == WorkflowFile || base == KnownErrorsFile
}

// handleFileChange resets the debounce timer; the invalidation fires
// once the burst of events settles.
func (w *Watcher) handleFileChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(
		time.Duration(w.config.DebounceMillis)*time.Millisecond,
		func() {
			w.logger.Info("Knowledge document %s changed, invalidating cache", filepath.Base(path))
			w.loader.Invalidate()
		},
	)
}

// Stop gracefully stops the watcher, waiting for the watch loop to
// exit within the context deadline (bounded at 5 seconds).
func (w *Watcher) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	select {
	case <-w.stopped:
		w.logger.Debug("Document watcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for watcher to stop")
	}
}

// Name implements the lifecycle.Component interface.
func (w *Watcher) Name() string {
	return "Knowledge Watcher"
}

// IsReady reports whether the watch loop finished initializing. The
// API server uses this as its readiness signal.
func (w *Watcher) IsReady() bool {
	select {
	case <-w.ready:
		return true
	default:
		return false
	}
}
