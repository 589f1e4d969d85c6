package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	fired := make(chan struct{}, 1)

	// Rapid triggers collapse into one callback.
	for i := 0; i < 5; i++ {
		d.Trigger(func() { fired <- struct{}{} })
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("debounced callback never fired")
	}

	select {
	case <-fired:
		t.Error("debouncer fired more than once for a burst")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer(100 * time.Millisecond)

	fired := make(chan struct{}, 1)
	d.Trigger(func() { fired <- struct{}{} })
	d.Stop()

	select {
	case <-fired:
		t.Error("stopped debouncer fired its pending callback")
	case <-time.After(250 * time.Millisecond):
	}
}

func TestFileWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  max_tokens: 1000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- fw.Watch(ctx, func(cfg *Config) error {
			select {
			case reloaded <- cfg:
			default:
			}
			return nil
		})
	}()

	// Give the watcher time to arm before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("pipeline:\n  max_tokens: 2000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Pipeline.MaxTokens != 2000 {
			t.Errorf("reloaded MaxTokens = %d, want 2000", cfg.Pipeline.MaxTokens)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired")
	}

	if err := fw.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestFileWatcherSkipsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  max_tokens: 1000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := make(chan struct{}, 1)
	go func() {
		fw.Watch(ctx, func(cfg *Config) error {
			applied <- struct{}{}
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)

	// An invalid file is logged and skipped; the callback never runs.
	if err := os.WriteFile(path, []byte("pipeline: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-applied:
		t.Error("callback ran for an invalid configuration")
	case <-time.After(500 * time.Millisecond):
	}

	fw.Stop()
}
