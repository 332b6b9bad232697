package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, dir string, loader *Loader) *Watcher {
	t.Helper()

	watcher, err := NewWatcher(WatcherConfig{Dir: dir, DebounceMillis: 100}, loader)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = watcher.Stop(context.Background()) })

	return watcher
}

// waitForDoc polls Docs until the workflow document matches or the
// timeout expires.
func waitForDoc(t *testing.T, loader *Loader, want string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if workflow, _ := loader.Docs(); workflow == want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	workflow, _ := loader.Docs()
	t.Fatalf("workflow = %q, want %q", workflow, want)
}

func TestWatcherInvalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, WorkflowFile, "first version")
	writeDoc(t, dir, KnownErrorsFile, "errors v1")

	loader := NewLoader(dir)
	startWatcher(t, dir, loader)

	// Warm the cache.
	if workflow, _ := loader.Docs(); workflow != "first version" {
		t.Fatalf("workflow = %q", workflow)
	}

	writeDoc(t, dir, WorkflowFile, "second version")

	waitForDoc(t, loader, "second version")
}

func TestWatcherDetectsAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, WorkflowFile, "first version")
	writeDoc(t, dir, KnownErrorsFile, "errors v1")

	loader := NewLoader(dir)
	startWatcher(t, dir, loader)

	if workflow, _ := loader.Docs(); workflow != "first version" {
		t.Fatalf("workflow = %q", workflow)
	}

	// Editors with atomic saves write a temp file and rename it over
	// the original.
	tmp := filepath.Join(dir, ".workflow.md.tmp")
	if err := os.WriteFile(tmp, []byte("replaced version"), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, WorkflowFile)); err != nil {
		t.Fatalf("failed to rename: %v", err)
	}

	waitForDoc(t, loader, "replaced version")
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, WorkflowFile, "first version")
	writeDoc(t, dir, KnownErrorsFile, "errors v1")

	loader := NewLoader(dir)
	startWatcher(t, dir, loader)

	if workflow, _ := loader.Docs(); workflow != "first version" {
		t.Fatalf("workflow = %q", workflow)
	}

	// Plant a sentinel in the cache that differs from disk. If an
	// unrelated file event wrongly invalidated the cache, the next read
	// would come from disk and miss the sentinel.
	loader.cache.Add(WorkflowFile, "cached sentinel")
	writeDoc(t, dir, "notes.txt", "unrelated")

	time.Sleep(400 * time.Millisecond)

	if workflow, _ := loader.Docs(); workflow != "cached sentinel" {
		t.Errorf("workflow = %q, cache should not have been invalidated", workflow)
	}
}

func TestWatcherMissingDirDegrades(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(filepath.Join(dir, "missing"))

	watcher, err := NewWatcher(WatcherConfig{Dir: loader.Dir()}, loader)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	// A missing directory degrades to TTL-only caching; Start and Stop
	// still succeed.
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := watcher.Stop(context.Background()); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestNewWatcherValidation(t *testing.T) {
	if _, err := NewWatcher(WatcherConfig{}, NewLoader("docs")); err == nil {
		t.Error("expected error for empty Dir")
	}
	if _, err := NewWatcher(WatcherConfig{Dir: "docs"}, nil); err == nil {
		t.Error("expected error for nil loader")
	}
}

func TestWatcherDefaultDebounce(t *testing.T) {
	watcher, err := NewWatcher(WatcherConfig{Dir: "docs"}, NewLoader("docs"))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if watcher.config.DebounceMillis != 500 {
		t.Errorf("DebounceMillis = %d, want 500", watcher.config.DebounceMillis)
	}
}

func TestWatcherStopGraceful(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)

	watcher, err := NewWatcher(WatcherConfig{Dir: dir, DebounceMillis: 100}, loader)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := watcher.Stop(context.Background()); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
