package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/budget"
	"mercator-hq/ganymede/pkg/config"
)

func TestBuildRegistryFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Pipeline.MaxTokens = 1000
	cfg.Categories = map[string]config.CategoryConfig{
		"document": {MaxTokens: 400, MaxCostUSD: 2},
	}

	r, err := buildRegistry(cfg, "")
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	defer r.Close()

	acct := r.AgentBudget("writer", &budget.AccountConfig{Category: "document"})
	if limit := acct.Status().TokenLimit; limit == nil || *limit != 400 {
		t.Errorf("category default TokenLimit = %v, want 400", limit)
	}

	r.RecordAgentUsage("writer", 300, 0, 0)
	if r.PipelineBudgetExceeded() {
		t.Error("PipelineBudgetExceeded = true below the configured limit")
	}
}

func TestApplyConfigUpdatesLiveRegistry(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Pipeline.MaxTokens = 10_000

	r, err := buildRegistry(cfg, "")
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	defer r.Close()

	r.RecordAgentUsage("writer", 900, 0, 0)
	if r.PipelineBudgetExceeded() {
		t.Fatal("PipelineBudgetExceeded = true under the original limit")
	}

	// A reload with a lower aggregate limit takes effect immediately.
	next := config.NewDefaultConfig()
	next.Pipeline.MaxTokens = 500
	next.Categories = map[string]config.CategoryConfig{
		"custom": {MaxTokens: 42},
	}
	applyConfig(r, next)

	if !r.PipelineBudgetExceeded() {
		t.Error("PipelineBudgetExceeded = false after the limit was lowered")
	}

	// New category defaults apply to agents created after the reload.
	acct := r.AgentBudget("late", &budget.AccountConfig{Category: "custom"})
	if limit := acct.Status().TokenLimit; limit == nil || *limit != 42 {
		t.Errorf("post-reload category TokenLimit = %v, want 42", limit)
	}
}

func TestConfigFileChangeReachesRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("pipeline:\n  max_tokens: 10000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	r, err := buildRegistry(cfg, "")
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	defer r.Close()

	r.RecordAgentUsage("writer", 900, 0, 0)

	fw, err := config.NewFileWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher: %v", err)
	}
	defer fw.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go fw.Watch(ctx, func(next *config.Config) error {
		applyConfig(r, next)
		return nil
	})

	// Give the watcher time to arm before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("pipeline:\n  max_tokens: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for !r.PipelineBudgetExceeded() {
		select {
		case <-deadline:
			t.Fatal("lowered pipeline limit never reached the registry")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
