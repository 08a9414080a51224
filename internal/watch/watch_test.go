package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/turbopilot/chunkopt/internal/domain"
	"github.com/turbopilot/chunkopt/internal/logger"
)

func init() {
	logger.Init(logger.Config{Level: logger.LevelDebug})
}

// fakeResolver is a PathResolver test double. By default every path
// resolves to a single placeholder module, so debounce/lifecycle tests
// that never inspect the resolved set don't need to care about it.
type fakeResolver struct {
	modulesForPathFunc func(path string) []domain.ModuleID
}

func (r *fakeResolver) ModulesForPath(path string) []domain.ModuleID {
	if r.modulesForPathFunc != nil {
		return r.modulesForPathFunc(path)
	}
	return []domain.ModuleID{"m1"}
}

func noopHandler(ctx context.Context, affected []domain.ModuleID, event FileEvent) error {
	return nil
}

func TestNewWatcher(t *testing.T) {
	watcher, err := NewWatcher(&fakeResolver{}, noopHandler, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Stop()

	if watcher == nil {
		t.Error("NewWatcher() returned nil watcher")
	}
}

func TestNewWatcher_NilHandler(t *testing.T) {
	_, err := NewWatcher(&fakeResolver{}, nil, 0)
	if err == nil {
		t.Error("NewWatcher() expected error for nil handler")
	}
}

func TestNewWatcher_DefaultsDebounce(t *testing.T) {
	watcher, err := NewWatcher(&fakeResolver{}, noopHandler, 0)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Stop()

	if watcher.debounceDuration != 500*time.Millisecond {
		t.Errorf("debounceDuration = %v, want 500ms default", watcher.debounceDuration)
	}
}

func TestWatcher_AddPath(t *testing.T) {
	watcher, err := NewWatcher(&fakeResolver{}, noopHandler, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Stop()

	tmpDir, err := os.MkdirTemp("", "watcher_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := watcher.AddPath(tmpDir); err != nil {
		t.Errorf("AddPath() error = %v", err)
	}
}

func TestWatcher_AddPath_InvalidPath(t *testing.T) {
	watcher, err := NewWatcher(&fakeResolver{}, noopHandler, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Stop()

	if err := watcher.AddPath(""); err == nil {
		t.Error("AddPath() expected error for empty path")
	}
}

func TestWatcher_Start_ContextCancellation(t *testing.T) {
	watcher, err := NewWatcher(&fakeResolver{}, noopHandler, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- watcher.Start(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Start() did not complete after context cancellation")
	}
}

func TestWatcher_Stop(t *testing.T) {
	watcher, err := NewWatcher(&fakeResolver{}, noopHandler, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	if err := watcher.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestFileEvent_Constants(t *testing.T) {
	if FileEventCreate != "create" {
		t.Errorf("FileEventCreate = %v, want 'create'", FileEventCreate)
	}
	if FileEventModify != "modify" {
		t.Errorf("FileEventModify = %v, want 'modify'", FileEventModify)
	}
	if FileEventDelete != "delete" {
		t.Errorf("FileEventDelete = %v, want 'delete'", FileEventDelete)
	}
}

func TestWatcher_HandleEvent_Create(t *testing.T) {
	eventReceived := make(chan FileEvent, 1)
	handler := func(ctx context.Context, affected []domain.ModuleID, event FileEvent) error {
		if len(affected) != 1 || affected[0] != "m1" {
			t.Errorf("unexpected affected modules: %v", affected)
		}
		eventReceived <- event
		return nil
	}

	watcher, err := NewWatcher(&fakeResolver{}, handler, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Stop()

	tmpDir, err := os.MkdirTemp("", "watcher_event_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := watcher.AddPath(tmpDir); err != nil {
		t.Fatalf("AddPath() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	go watcher.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	select {
	case event := <-eventReceived:
		if event != FileEventCreate {
			t.Errorf("Expected FileEventCreate, got %v", event)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timed out waiting for file creation event")
	}
}

func TestWatcher_HandleEvent_SkipsUnresolvedPath(t *testing.T) {
	handlerCalled := make(chan struct{}, 1)
	handler := func(ctx context.Context, affected []domain.ModuleID, event FileEvent) error {
		handlerCalled <- struct{}{}
		return nil
	}
	resolver := &fakeResolver{
		modulesForPathFunc: func(path string) []domain.ModuleID { return nil },
	}

	watcher, err := NewWatcher(resolver, handler, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Stop()

	tmpDir, err := os.MkdirTemp("", "watcher_unresolved_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := watcher.AddPath(tmpDir); err != nil {
		t.Fatalf("AddPath() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	go watcher.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	select {
	case <-handlerCalled:
		t.Error("expected handler not to be called for a path with no resolved modules")
	case <-time.After(500 * time.Millisecond):
	}
}
