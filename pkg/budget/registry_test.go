package budget

import (
	"strings"
	"sync"
	"testing"

	"mercator-hq/ganymede/pkg/budget/persist"
)

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func TestAgentBudgetLazyCreation(t *testing.T) {
	r := NewRegistry(Config{})

	if r.Size() != 0 {
		t.Fatalf("new registry has %d accounts, want 0", r.Size())
	}

	first := r.AgentBudget("writer", &AccountConfig{TokenLimit: int64Ptr(1000)})
	if r.Size() != 1 {
		t.Errorf("Size = %d after first reference, want 1", r.Size())
	}

	// Same name returns the same instance; later config is ignored.
	second := r.AgentBudget("writer", &AccountConfig{TokenLimit: int64Ptr(5)})
	if first != second {
		t.Error("second AgentBudget call returned a different instance")
	}
	if limit := second.Status().TokenLimit; limit == nil || *limit != 1000 {
		t.Errorf("TokenLimit = %v, want the original 1000", limit)
	}
}

func TestAgentBudgetCategoryDefaults(t *testing.T) {
	r := NewRegistry(Config{})

	acct := r.AgentBudget("indexer", &AccountConfig{Category: "infrastructure"})
	if limit := acct.Status().TokenLimit; limit == nil || *limit != 50_000 {
		t.Errorf("TokenLimit = %v, want category default 50000", limit)
	}

	// Explicit limits win over category defaults.
	acct = r.AgentBudget("special", &AccountConfig{
		Category:   "infrastructure",
		TokenLimit: int64Ptr(123),
	})
	if limit := acct.Status().TokenLimit; limit == nil || *limit != 123 {
		t.Errorf("TokenLimit = %v, want explicit 123", limit)
	}

	// Unknown category means no default limits.
	acct = r.AgentBudget("mystery", &AccountConfig{Category: "nonexistent"})
	if limit := acct.Status().TokenLimit; limit != nil {
		t.Errorf("TokenLimit = %v for unknown category, want nil", limit)
	}
}

func TestRecordAgentUsage(t *testing.T) {
	r := NewRegistry(Config{})
	r.AgentBudget("writer", &AccountConfig{TokenLimit: int64Ptr(1000)})

	result := r.RecordAgentUsage("writer", 300, 200, 0.05)
	if !result.Allowed {
		t.Fatalf("usage denied: %s", result.Reason)
	}

	status := r.PipelineStatus()
	if status.TotalTokens != 500 {
		t.Errorf("TotalTokens = %d, want 500", status.TotalTokens)
	}
}

func TestOnBudgetExceededCallback(t *testing.T) {
	var exceeded []string
	r := NewRegistry(Config{
		OnBudgetExceeded: func(agent string) { exceeded = append(exceeded, agent) },
	})
	r.AgentBudget("writer", &AccountConfig{TokenLimit: int64Ptr(100)})

	r.RecordAgentUsage("writer", 50, 0, 0)
	if len(exceeded) != 0 {
		t.Fatalf("callback fired below limit: %v", exceeded)
	}

	r.RecordAgentUsage("writer", 60, 0, 0)
	if len(exceeded) != 1 || exceeded[0] != "writer" {
		t.Errorf("exceeded = %v, want [writer]", exceeded)
	}
}

func TestEstimateAgentUsage(t *testing.T) {
	r := NewRegistry(Config{
		Pipeline: PipelineLimits{MaxTokens: 1000, MaxCostUSD: 10, WarningThreshold: 0.8},
	})
	r.AgentBudget("writer", &AccountConfig{TokenLimit: int64Ptr(800)})
	r.AgentBudget("reviewer", nil)

	// Agent limit checked first.
	est := r.EstimateAgentUsage("writer", 900, 0, 0)
	if est.Allowed {
		t.Fatal("estimate past agent limit allowed")
	}
	if !strings.Contains(est.Reason, "Token limit exceeded") {
		t.Errorf("Reason = %q, want agent token limit mention", est.Reason)
	}

	// Within the agent limit but past the pipeline budget: the reviewer has
	// no limit of its own, yet the pipeline total refuses the work.
	r.RecordAgentUsage("writer", 700, 0, 0)
	est = r.EstimateAgentUsage("reviewer", 400, 0, 0)
	if est.Allowed {
		t.Fatal("estimate past pipeline budget allowed")
	}
	if !strings.Contains(est.Reason, "Pipeline token budget would be exceeded") {
		t.Errorf("Reason = %q, want pipeline budget mention", est.Reason)
	}

	// Pipeline cost dimension.
	est = r.EstimateAgentUsage("reviewer", 0, 0, 20)
	if est.Allowed {
		t.Fatal("estimate past pipeline cost budget allowed")
	}
	if !strings.Contains(est.Reason, "Pipeline cost budget would be exceeded") {
		t.Errorf("Reason = %q, want pipeline cost mention", est.Reason)
	}

	// Headroom on both levels.
	est = r.EstimateAgentUsage("reviewer", 100, 0, 0.5)
	if !est.Allowed {
		t.Errorf("estimate within budgets denied: %s", est.Reason)
	}
}

func TestPipelineStatusAggregation(t *testing.T) {
	r := NewRegistry(Config{
		Pipeline: PipelineLimits{MaxTokens: 1000, MaxCostUSD: 10, WarningThreshold: 0.8},
	})
	r.AgentBudget("ok", &AccountConfig{TokenLimit: int64Ptr(1000)})
	r.AgentBudget("warned", &AccountConfig{TokenLimit: int64Ptr(100)})
	r.AgentBudget("blown", &AccountConfig{TokenLimit: int64Ptr(100)})

	r.RecordAgentUsage("ok", 100, 0, 0.1)
	r.RecordAgentUsage("warned", 60, 0, 0.1) // 60% of its limit
	r.RecordAgentUsage("blown", 150, 0, 0.1) // past its limit

	status := r.PipelineStatus()

	if status.TotalTokens != 310 {
		t.Errorf("TotalTokens = %d, want 310", status.TotalTokens)
	}
	if len(status.Agents) != 3 {
		t.Errorf("Agents has %d entries, want 3", len(status.Agents))
	}
	if len(status.ExceededAgents) != 1 || status.ExceededAgents[0] != "blown" {
		t.Errorf("ExceededAgents = %v, want [blown]", status.ExceededAgents)
	}
	if len(status.WarningAgents) != 1 || status.WarningAgents[0] != "warned" {
		t.Errorf("WarningAgents = %v, want [warned]", status.WarningAgents)
	}
	if status.TokenUsagePercent != 31.0 {
		t.Errorf("TokenUsagePercent = %f, want 31", status.TokenUsagePercent)
	}
	if status.WarningExceeded {
		t.Error("pipeline WarningExceeded = true at 31%, want false")
	}
	if status.LimitExceeded {
		t.Error("pipeline LimitExceeded = true at 31%, want false")
	}
}

func TestPipelineWarningAndLimit(t *testing.T) {
	r := NewRegistry(Config{
		Pipeline: PipelineLimits{MaxTokens: 1000, MaxCostUSD: 1000, WarningThreshold: 0.8},
	})

	r.RecordAgentUsage("writer", 850, 0, 0)
	status := r.PipelineStatus()
	if !status.WarningExceeded {
		t.Error("WarningExceeded = false at 85%, want true")
	}
	if status.LimitExceeded {
		t.Error("LimitExceeded = true at 85%, want false")
	}
	if r.PipelineBudgetExceeded() {
		t.Error("PipelineBudgetExceeded = true at 85%, want false")
	}

	r.RecordAgentUsage("writer", 150, 0, 0)
	status = r.PipelineStatus()
	if !status.LimitExceeded {
		t.Error("LimitExceeded = false at 100%, want true")
	}
	if !r.PipelineBudgetExceeded() {
		t.Error("PipelineBudgetExceeded = false at 100%, want true")
	}
}

func TestHasExceededBudgets(t *testing.T) {
	r := NewRegistry(Config{})
	r.AgentBudget("writer", &AccountConfig{TokenLimit: int64Ptr(100)})

	if r.HasExceededBudgets() {
		t.Error("HasExceededBudgets = true with no usage")
	}

	r.RecordAgentUsage("writer", 100, 0, 0)
	if !r.HasExceededBudgets() {
		t.Error("HasExceededBudgets = false with an exceeded agent")
	}
}

func TestResetAgentAndAll(t *testing.T) {
	r := NewRegistry(Config{})
	r.RecordAgentUsage("writer", 100, 0, 0.1)
	r.RecordAgentUsage("reviewer", 200, 0, 0.2)

	if !r.ResetAgent("writer") {
		t.Fatal("ResetAgent(writer) = false")
	}
	if r.ResetAgent("unknown") {
		t.Error("ResetAgent(unknown) = true")
	}

	status := r.PipelineStatus()
	if status.Agents["writer"].CurrentTokens != 0 {
		t.Error("writer not reset")
	}
	if status.Agents["reviewer"].CurrentTokens != 200 {
		t.Error("reviewer reset unexpectedly")
	}

	r.ResetAll()
	if tokens, _, _ := r.totals(); tokens != 0 {
		t.Errorf("totals = %d after ResetAll, want 0", tokens)
	}
}

func TestRemoveAgentDeletesSnapshot(t *testing.T) {
	store := persist.NewMemoryStore()
	r := NewRegistry(Config{SessionID: "run-9", Store: store})

	r.RecordAgentUsage("writer", 100, 0, 0)
	if store.Size() != 1 {
		t.Fatalf("store has %d snapshots, want 1", store.Size())
	}

	if !r.RemoveAgent("writer") {
		t.Fatal("RemoveAgent = false")
	}
	if store.Size() != 0 {
		t.Errorf("store has %d snapshots after removal, want 0", store.Size())
	}
	if r.RemoveAgent("writer") {
		t.Error("RemoveAgent = true for already-removed agent")
	}
}

func TestClear(t *testing.T) {
	store := persist.NewMemoryStore()
	r := NewRegistry(Config{SessionID: "run-9", Store: store})

	r.RecordAgentUsage("writer", 100, 0, 0)
	r.RecordAgentUsage("reviewer", 100, 0, 0)

	r.Clear()
	if r.Size() != 0 {
		t.Errorf("Size = %d after Clear, want 0", r.Size())
	}
	if store.Size() != 0 {
		t.Errorf("store has %d snapshots after Clear, want 0", store.Size())
	}
}

func TestRegisteredAgentsSorted(t *testing.T) {
	r := NewRegistry(Config{})
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.AgentBudget(name, nil)
	}

	got := r.RegisteredAgents()
	want := []string{"alpha", "mid", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("RegisteredAgents = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RegisteredAgents[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSessionIDGenerated(t *testing.T) {
	r := NewRegistry(Config{Store: persist.NewMemoryStore()})
	if r.SessionID() == "" {
		t.Error("SessionID empty with persistence enabled")
	}

	unpersisted := NewRegistry(Config{})
	if unpersisted.SessionID() != "" {
		t.Errorf("SessionID = %q without persistence, want empty", unpersisted.SessionID())
	}
}

func TestCrashRecovery(t *testing.T) {
	store := persist.NewMemoryStore()

	r := NewRegistry(Config{SessionID: "run-7", Store: store})
	r.AgentBudget("writer", &AccountConfig{TokenLimit: int64Ptr(1000)})
	r.RecordAgentUsage("writer", 600, 0, 0.3)

	// A new registry with the same session id stands in for the restarted
	// process.
	recovered := NewRegistry(Config{SessionID: "run-7", Store: store})
	acct := recovered.AgentBudget("writer", nil)

	status := acct.Status()
	if status.CurrentTokens != 600 {
		t.Errorf("recovered CurrentTokens = %d, want 600", status.CurrentTokens)
	}
	if status.TokenLimit == nil || *status.TokenLimit != 1000 {
		t.Errorf("recovered TokenLimit = %v, want 1000", status.TokenLimit)
	}

	// The recovered 50% trigger does not re-fire.
	result := recovered.RecordAgentUsage("writer", 10, 0, 0)
	if len(result.Warnings) != 0 {
		t.Errorf("recovered agent re-fired %d warnings", len(result.Warnings))
	}
}

func TestSummaryReport(t *testing.T) {
	r := NewRegistry(Config{
		Pipeline: PipelineLimits{MaxTokens: 1000, MaxCostUSD: 10, WarningThreshold: 0.8},
	})
	r.AgentBudget("writer", &AccountConfig{TokenLimit: int64Ptr(100)})
	r.RecordAgentUsage("writer", 150, 0, 0.5)

	report := r.SummaryReport()
	for _, want := range []string{"Pipeline Budget Summary", "writer", "[EXCEEDED]"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestSetPipelineLimits(t *testing.T) {
	r := NewRegistry(Config{
		Pipeline: PipelineLimits{MaxTokens: 1000, MaxCostUSD: 10, WarningThreshold: 0.8},
	})
	r.RecordAgentUsage("writer", 900, 0, 0)

	if r.PipelineBudgetExceeded() {
		t.Fatal("PipelineBudgetExceeded = true at 90%")
	}

	r.SetPipelineLimits(PipelineLimits{MaxTokens: 500, MaxCostUSD: 10, WarningThreshold: 0.8})
	if !r.PipelineBudgetExceeded() {
		t.Error("PipelineBudgetExceeded = false after lowering the limit")
	}
}

func TestSetCategoryDefaults(t *testing.T) {
	r := NewRegistry(Config{})
	before := r.AgentBudget("a", &AccountConfig{Category: "custom"})
	if before.Status().TokenLimit != nil {
		t.Fatal("unknown category produced a limit")
	}

	r.SetCategoryDefaults(map[string]CategoryLimits{"custom": {MaxTokens: 42}})

	// Existing accounts are unaffected; new ones pick up the table.
	if before.Status().TokenLimit != nil {
		t.Error("existing account gained a limit")
	}
	after := r.AgentBudget("b", &AccountConfig{Category: "custom"})
	if limit := after.Status().TokenLimit; limit == nil || *limit != 42 {
		t.Errorf("new account TokenLimit = %v, want 42", limit)
	}
}

func TestConcurrentLimitUpdates(t *testing.T) {
	// Limit replacement must be safe against concurrent estimation and
	// aggregate checks; run under -race.
	r := NewRegistry(Config{
		Pipeline: PipelineLimits{MaxTokens: 1000, MaxCostUSD: 10, WarningThreshold: 0.8},
	})
	r.AgentBudget("writer", nil)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.SetPipelineLimits(PipelineLimits{
				MaxTokens:        int64(1000 + i),
				MaxCostUSD:       10,
				WarningThreshold: 0.8,
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.EstimateAgentUsage("writer", 10, 5, 0.01)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.PipelineBudgetExceeded()
		}
	}()
	wg.Wait()

	if r.PipelineBudgetExceeded() {
		t.Error("PipelineBudgetExceeded = true with no usage recorded")
	}
}

func TestConcurrentUsageAndStatus(t *testing.T) {
	r := NewRegistry(Config{})

	const goroutines = 8
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			agent := []string{"writer", "reviewer", "indexer"}[n%3]
			for j := 0; j < perGoroutine; j++ {
				r.RecordAgentUsage(agent, 1, 1, 0.001)
				if j%10 == 0 {
					r.PipelineStatus()
				}
			}
		}(i)
	}
	wg.Wait()

	status := r.PipelineStatus()
	want := int64(goroutines * perGoroutine * 2)
	if status.TotalTokens != want {
		t.Errorf("TotalTokens = %d, want %d (lost updates)", status.TotalTokens, want)
	}
}

func TestMetricsWiring(t *testing.T) {
	// Registering with metrics must not panic and must keep counting.
	r := NewRegistry(Config{Metrics: NewMetrics()})
	r.AgentBudget("writer", &AccountConfig{TokenLimit: int64Ptr(100)})

	r.RecordAgentUsage("writer", 150, 0, 0.1)
	r.PipelineStatus()
	r.TransferTokenBudget("writer", "missing", 10)
}
