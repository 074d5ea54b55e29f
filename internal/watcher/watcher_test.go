package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches to dir for the duration of the test, equivalent to
// t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(prev))
	})
}

func TestFileFilters(t *testing.T) {
	tests := []struct {
		name     string
		filter   FileFilter
		path     string
		expected bool
	}{
		{"markup matches bxml", MarkupFilter, "views/login.bxml", true},
		{"markup rejects go", MarkupFilter, "viewmodels/customer.go", false},
		{"go matches source", GoFilter, "viewmodels/customer.go", true},
		{"go rejects markup", GoFilter, "views/login.bxml", false},
		{"no-test rejects test file", NoTestFilter, "viewmodels/customer_test.go", false},
		{"no-test accepts source", NoTestFilter, "viewmodels/customer.go", true},
		{"no-vendor rejects vendor root", NoVendorFilter, "vendor/pkg/file.go", false},
		{"no-vendor rejects nested vendor", NoVendorFilter, "a/vendor/pkg/file.go", false},
		{"no-vendor accepts source", NoVendorFilter, "internal/file.go", true},
		{"no-git rejects git dir", NoGitFilter, ".git/HEAD", false},
		{"no-git accepts source", NoGitFilter, "internal/file.go", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter(tt.path))
		})
	}
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "created", EventTypeCreated.String())
	assert.Equal(t, "modified", EventTypeModified.String())
	assert.Equal(t, "deleted", EventTypeDeleted.String())
	assert.Equal(t, "renamed", EventTypeRenamed.String())
	assert.Equal(t, "unknown", EventType(99).String())
}

func TestDebouncer_GroupsAndDeduplicates(t *testing.T) {
	debouncer := &Debouncer{
		delay:   20 * time.Millisecond,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 10),
		pending: make([]ChangeEvent, 0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	// Three rapid events on two paths collapse into one batch of two.
	debouncer.events <- ChangeEvent{Type: EventTypeModified, Path: "views/login.bxml"}
	debouncer.events <- ChangeEvent{Type: EventTypeModified, Path: "views/login.bxml"}
	debouncer.events <- ChangeEvent{Type: EventTypeCreated, Path: "views/profile.bxml"}

	select {
	case events := <-debouncer.output:
		assert.Len(t, events, 2)
		paths := make(map[string]bool)
		for _, event := range events {
			paths[event.Path] = true
		}
		assert.True(t, paths["views/login.bxml"])
		assert.True(t, paths["views/profile.bxml"])
	case <-time.After(time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestFileWatcher_PathValidation(t *testing.T) {
	fw, err := NewFileWatcher(10 * time.Millisecond)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, fw.Stop())
	}()

	assert.Error(t, fw.AddPath("../outside"))
	assert.Error(t, fw.AddRecursive("/etc"))
}

func TestFileWatcher_DeliversFilteredChanges(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.MkdirAll("views", 0755))

	fw, err := NewFileWatcher(20 * time.Millisecond)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, fw.Stop())
	}()

	fw.AddFilter(MarkupFilter)

	var mu sync.Mutex
	var received []ChangeEvent
	fw.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, events...)
		return nil
	})

	require.NoError(t, fw.AddPath("views"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join("views", "login.bxml"), []byte("<Page/>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join("views", "notes.txt"), []byte("ignored"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 3*time.Second, 20*time.Millisecond, "expected a change event")

	mu.Lock()
	defer mu.Unlock()
	for _, event := range received {
		assert.Equal(t, ".bxml", filepath.Ext(event.Path))
	}
}
