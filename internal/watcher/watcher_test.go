// ABOUTME: Tests for the debounced file watcher
// ABOUTME: Uses real fsnotify events in temp directories
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_BadPattern(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, []string{"[unclosed"}, nil, func([]string) {}); err == nil {
		t.Error("expected error for invalid glob")
	}
}

func TestWatcher_Matches(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, []string{"*.go", "src/**/*.py"}, nil, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	tests := []struct {
		path string
		want bool
	}{
		{"/work/main.go", true},
		{"/work/README.md", false},
		{"src/pkg/deep/tool.py", true},
		{"other/tool.py", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := w.matches(tt.path); got != tt.want {
				t.Errorf("matches(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWatcher_DebouncedBatch(t *testing.T) {
	tmpDir := t.TempDir()

	changed := make(chan []string, 8)
	w, err := NewWatcher(150*time.Millisecond, []string{"*.go"}, DefaultExcludeDirs, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	a := filepath.Join(tmpDir, "a.go")
	b := filepath.Join(tmpDir, "b.go")
	if err := os.WriteFile(a, []byte("package a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("package b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	timeout := time.After(3 * time.Second)
	for !(seen[a] && seen[b]) {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if filepath.Base(p) == "notes.txt" {
					t.Errorf("unmatched file triggered change: %s", p)
				}
				seen[p] = true
			}
		case <-timeout:
			t.Fatalf("timed out waiting for changes, saw %v", seen)
		}
	}
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	tmpDir := t.TempDir()

	changed := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, nil, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	subdir := filepath.Join(tmpDir, "newdir")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(subdir, "nested.go")
	if err := os.WriteFile(nested, []byte("package nested"), 0o644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(3 * time.Second)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == nested {
					return
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for nested file event in newly created directory")
		}
	}
}
