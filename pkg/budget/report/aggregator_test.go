package report

import (
	"fmt"
	"strings"
	"testing"

	"mercator-hq/ganymede/pkg/budget"
	"mercator-hq/ganymede/pkg/budget/account"
)

func int64Ptr(v int64) *int64 { return &v }

// snapshotOf builds a pipeline snapshot directly, so aggregator tests do
// not depend on registry behavior.
func snapshotOf(agents map[string]account.Status) *budget.PipelineStatus {
	status := &budget.PipelineStatus{
		MaxTokens:  1_000_000,
		MaxCostUSD: 50,
		Agents:     agents,
	}
	for name, st := range agents {
		status.TotalTokens += st.CurrentTokens
		status.TotalCostUSD += st.CurrentCostUSD
		if st.LimitExceeded {
			status.ExceededAgents = append(status.ExceededAgents, name)
		}
	}
	return status
}

func TestAgentSummariesSortedByCost(t *testing.T) {
	agg := NewAggregator(Config{})

	status := snapshotOf(map[string]account.Status{
		"cheap":  {CurrentTokens: 100, CurrentCostUSD: 0.1},
		"pricey": {CurrentTokens: 200, CurrentCostUSD: 0.9},
		"mid":    {CurrentTokens: 300, CurrentCostUSD: 0.5},
	})

	summaries := agg.AgentSummaries(status)
	wantOrder := []string{"pricey", "mid", "cheap"}
	for i, want := range wantOrder {
		if summaries[i].Agent != want {
			t.Errorf("summaries[%d].Agent = %q, want %q", i, summaries[i].Agent, want)
		}
	}
}

func TestAgentSummariesShares(t *testing.T) {
	agg := NewAggregator(Config{})

	status := snapshotOf(map[string]account.Status{
		"big":   {CurrentTokens: 9000, CurrentCostUSD: 0.9},
		"small": {CurrentTokens: 500, CurrentCostUSD: 0.1},
	})

	summaries := agg.AgentSummaries(status)
	var big AgentSummary
	for _, s := range summaries {
		if s.Agent == "big" {
			big = s
		}
	}

	// 9000 of 9500 tokens is about 94.7%.
	if big.TokenSharePercent < 94.7 || big.TokenSharePercent > 94.8 {
		t.Errorf("TokenSharePercent = %f, want about 94.7", big.TokenSharePercent)
	}
	if big.CostSharePercent < 89.9 || big.CostSharePercent > 90.1 {
		t.Errorf("CostSharePercent = %f, want about 90", big.CostSharePercent)
	}
}

func TestAgentSummariesEmptyPipeline(t *testing.T) {
	agg := NewAggregator(Config{})

	summaries := agg.AgentSummaries(snapshotOf(map[string]account.Status{
		"idle": {},
	}))

	// Zero totals must not divide by zero.
	if summaries[0].TokenSharePercent != 0 || summaries[0].CostSharePercent != 0 {
		t.Errorf("shares = %f/%f with zero totals, want 0/0",
			summaries[0].TokenSharePercent, summaries[0].CostSharePercent)
	}
}

func TestCategorySummaries(t *testing.T) {
	agg := NewAggregator(Config{})
	agg.RegisterCategoryMappings([]CategoryMapping{
		{Agent: "writer", Category: "document"},
		{Agent: "editor", Category: "document"},
		{Agent: "runner", Category: "execution"},
	})

	status := snapshotOf(map[string]account.Status{
		"writer": {CurrentTokens: 100, CurrentCostUSD: 0.1},
		"editor": {CurrentTokens: 200, CurrentCostUSD: 0.2},
		"runner": {CurrentTokens: 50, CurrentCostUSD: 0.7},
		"stray":  {CurrentTokens: 10, CurrentCostUSD: 0.01},
	})

	summaries := agg.CategorySummaries(status)
	if len(summaries) != 3 {
		t.Fatalf("got %d categories, want 3", len(summaries))
	}

	byName := map[string]CategorySummary{}
	for _, c := range summaries {
		byName[c.Category] = c
	}

	doc := byName["document"]
	if doc.TotalTokens != 300 || doc.AgentCount != 2 {
		t.Errorf("document = %d tokens, %d agents; want 300, 2", doc.TotalTokens, doc.AgentCount)
	}
	if _, ok := byName[CategoryUncategorized]; !ok {
		t.Errorf("unmapped agent not grouped under %q", CategoryUncategorized)
	}

	// Sorted by cost descending: execution ($0.7) first.
	if summaries[0].Category != "execution" {
		t.Errorf("first category = %q, want execution", summaries[0].Category)
	}
}

func TestRegisterAgentCategory(t *testing.T) {
	agg := NewAggregator(Config{})
	agg.RegisterAgentCategory("writer", "document")

	summaries := agg.AgentSummaries(snapshotOf(map[string]account.Status{
		"writer": {CurrentTokens: 1},
	}))
	if summaries[0].Category != "document" {
		t.Errorf("Category = %q, want document", summaries[0].Category)
	}
}

func TestTrendSeries(t *testing.T) {
	agg := NewAggregator(Config{})

	agg.RecordTrendPoint(snapshotOf(map[string]account.Status{
		"writer": {CurrentTokens: 100, CurrentCostUSD: 0.1},
	}))
	agg.RecordTrendPoint(snapshotOf(map[string]account.Status{
		"writer": {CurrentTokens: 250, CurrentCostUSD: 0.3},
	}))

	trends := agg.UsageTrends()
	if len(trends) != 2 {
		t.Fatalf("got %d trend points, want 2", len(trends))
	}

	if trends[0].TotalTokens != 100 || trends[1].TotalTokens != 250 {
		t.Errorf("totals = %d, %d; want 100, 250", trends[0].TotalTokens, trends[1].TotalTokens)
	}
	if trends[1].CumulativeTokens != 350 {
		t.Errorf("CumulativeTokens = %d, want 350", trends[1].CumulativeTokens)
	}

	agg.ClearTrends()
	if len(agg.UsageTrends()) != 0 {
		t.Error("trends not cleared")
	}

	// Cumulative sums restart after a clear.
	agg.RecordTrendPoint(snapshotOf(map[string]account.Status{
		"writer": {CurrentTokens: 10},
	}))
	if got := agg.UsageTrends()[0].CumulativeTokens; got != 10 {
		t.Errorf("CumulativeTokens = %d after clear, want 10", got)
	}
}

func TestTrendSeriesEviction(t *testing.T) {
	agg := NewAggregator(Config{MaxTrendPoints: 3})

	for i := 1; i <= 5; i++ {
		agg.RecordTrendPoint(snapshotOf(map[string]account.Status{
			"writer": {CurrentTokens: int64(i)},
		}))
	}

	trends := agg.UsageTrends()
	if len(trends) != 3 {
		t.Fatalf("got %d trend points, want 3", len(trends))
	}

	// Oldest evicted first: points 3, 4, 5 remain, cumulative sums intact.
	if trends[0].TotalTokens != 3 || trends[2].TotalTokens != 5 {
		t.Errorf("kept points = %d..%d, want 3..5", trends[0].TotalTokens, trends[2].TotalTokens)
	}
	if trends[2].CumulativeTokens != 15 {
		t.Errorf("CumulativeTokens = %d, want 15 (1+2+3+4+5)", trends[2].CumulativeTokens)
	}
}

func TestGenerateReportTopConsumers(t *testing.T) {
	agg := NewAggregator(Config{TopConsumers: 2})

	agents := map[string]account.Status{}
	for i := 0; i < 5; i++ {
		agents[fmt.Sprintf("agent-%d", i)] = account.Status{
			CurrentTokens:  int64(100 * (i + 1)),
			CurrentCostUSD: float64(i+1) * 0.1,
		}
	}

	rep := agg.GenerateReport(snapshotOf(agents))
	if len(rep.AgentSummaries) != 5 {
		t.Errorf("AgentSummaries has %d entries, want 5", len(rep.AgentSummaries))
	}
	if len(rep.TopConsumers) != 2 {
		t.Fatalf("TopConsumers has %d entries, want 2", len(rep.TopConsumers))
	}
	if rep.TopConsumers[0].Agent != "agent-4" {
		t.Errorf("top consumer = %q, want agent-4", rep.TopConsumers[0].Agent)
	}
}

func TestFormatReport(t *testing.T) {
	agg := NewAggregator(Config{})
	agg.RegisterAgentCategory("writer", "document")

	status := snapshotOf(map[string]account.Status{
		"writer": {
			CurrentTokens:     150,
			CurrentCostUSD:    0.5,
			TokenLimit:        int64Ptr(100),
			TokenUsagePercent: 150,
			LimitExceeded:     true,
		},
	})
	status.LimitExceeded = true

	text := agg.FormatReport(agg.GenerateReport(status))

	for _, want := range []string{
		"PIPELINE USAGE REPORT",
		"*** PIPELINE BUDGET EXCEEDED ***",
		"writer",
		"[document]",
		"Top Consumers",
		"Budget exceeded for: writer",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}
