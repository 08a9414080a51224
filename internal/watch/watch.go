// Package watch monitors the module graph's source directories and
// invalidates the memoization cache on change, standing in for the
// incremental task runtime's own invalidation signal when chunkopt runs
// as a standalone service.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/turbopilot/chunkopt/internal/domain"
	"github.com/turbopilot/chunkopt/internal/errors"
	"github.com/turbopilot/chunkopt/internal/logger"
)

// Watcher monitors file system changes and resolves them to the module
// graph entries a host process needs to invalidate.
type Watcher struct {
	watcher          *fsnotify.Watcher
	paths            []string
	resolver         PathResolver
	handler          InvalidationHandler
	mu               sync.RWMutex
	debounceDuration time.Duration
	pending          map[string]*time.Timer
	pendingMu        sync.Mutex
}

// PathResolver maps a changed filesystem path to the module identities
// it defines. *oracle.ModuleGraph implements this via RegisterPath and
// ModulesForPath, keeping this package free of a direct dependency on
// internal/oracle.
type PathResolver interface {
	ModulesForPath(path string) []domain.ModuleID
}

// InvalidationHandler is called when a watched path changes and resolves
// to one or more known modules. It is the hook through which the host
// evicts stale cached comparisons for exactly those modules, rather
// than the path itself.
type InvalidationHandler func(ctx context.Context, affected []domain.ModuleID, event FileEvent) error

// FileEvent represents a file system event.
type FileEvent string

const (
	FileEventCreate FileEvent = "create"
	FileEventModify FileEvent = "modify"
	FileEventDelete FileEvent = "delete"
)

// NewWatcher creates a new file system watcher. resolver turns a
// changed path into the module identities it affects; handler is
// invoked with that resolved set. debounceDuration controls how long
// to wait after the last event before calling the handler; use 0 to
// fall back to a 500ms default.
func NewWatcher(resolver PathResolver, handler InvalidationHandler, debounceDuration time.Duration) (*Watcher, error) {
	if resolver == nil {
		return nil, errors.ValidationError("path resolver cannot be nil")
	}
	if handler == nil {
		return nil, errors.ValidationError("invalidation handler cannot be nil")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create file watcher")
	}

	if debounceDuration <= 0 {
		debounceDuration = 500 * time.Millisecond
	}

	return &Watcher{
		watcher:          w,
		paths:            make([]string, 0),
		resolver:         resolver,
		handler:          handler,
		debounceDuration: debounceDuration,
		pending:          make(map[string]*time.Timer),
	}, nil
}

// AddPath adds a directory to watch, recursively including all
// subdirectories. fsnotify does not support recursive watching
// natively, so we walk the tree.
func (w *Watcher) AddPath(path string) error {
	if path == "" {
		return errors.ValidationError("watch path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "failed to resolve watch path")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var dirsAdded int
	walkErr := filepath.Walk(absPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable paths
		}
		if !info.IsDir() {
			return nil
		}
		name := info.Name()
		if strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			logger.Warn("Failed to watch directory", "path", p, "error", err)
			return nil
		}
		dirsAdded++
		return nil
	})
	if walkErr != nil {
		return errors.Wrap(walkErr, errors.ErrorTypeInternal, "failed to walk watch path")
	}

	w.paths = append(w.paths, absPath)
	logger.Info("Added watch path (recursive)", "root", absPath, "dirs_watched", dirsAdded)

	return nil
}

// Start begins watching for file changes. It blocks until ctx is
// cancelled or the underlying watcher's channels are closed.
func (w *Watcher) Start(ctx context.Context) error {
	logger.Info("Starting module graph watcher", "paths", len(w.paths))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Module graph watcher stopped")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Module graph watcher error", "error", err)
		}
	}
}

// handleEvent processes a file system event with debouncing. Rapid
// successive events for the same path are collapsed into one handler
// call, since a save typically fires write+chmod back to back.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	var fileEvent FileEvent

	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		fileEvent = FileEventCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		fileEvent = FileEventModify
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		fileEvent = FileEventDelete
	default:
		return // ignore rename/chmod etc.
	}

	logger.Info("Module graph change detected", "path", event.Name, "event", fileEvent)

	path := event.Name

	w.pendingMu.Lock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounceDuration, func() {
		w.pendingMu.Lock()
		delete(w.pending, path)
		w.pendingMu.Unlock()

		affected := w.resolver.ModulesForPath(path)
		if len(affected) == 0 {
			logger.Debug("Changed path resolves to no known modules, skipping invalidation", "path", path)
			return
		}

		if err := w.handler(ctx, affected, fileEvent); err != nil {
			logger.Error("Failed to handle module graph change",
				"path", path,
				"event", fileEvent,
				"affected", affected,
				"error", err,
			)
		}
	})
	w.pendingMu.Unlock()
}

// Stop stops the watcher and cancels all pending debounce timers.
func (w *Watcher) Stop() error {
	w.pendingMu.Lock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.pending = make(map[string]*time.Timer)
	w.pendingMu.Unlock()
	return w.watcher.Close()
}
