package report

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/budget"
)

// Aggregator builds summaries, suggestions, and trend series from pipeline
// status snapshots. It never talks to the registry directly; every method
// takes the snapshot it should operate on.
//
// Aggregator is safe for concurrent use. The category mapping and the
// trend series are the only mutable state it carries.
type Aggregator struct {
	config Config

	mu         sync.RWMutex
	categories map[string]string

	trends            []TrendPoint
	cumulativeTokens  int64
	cumulativeCostUSD float64

	logger *slog.Logger
}

// NewAggregator creates an aggregator with the given configuration.
// Zero-value config fields fall back to the defaults.
func NewAggregator(config Config) *Aggregator {
	config.applyDefaults()

	return &Aggregator{
		config:     config,
		categories: make(map[string]string),
		logger:     slog.Default().With("component", "budget.report"),
	}
}

// RegisterAgentCategory maps an agent to its reporting category.
func (a *Aggregator) RegisterAgentCategory(agent, category string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.categories[agent] = category
}

// RegisterCategoryMappings maps a batch of agents to their categories.
func (a *Aggregator) RegisterCategoryMappings(mappings []CategoryMapping) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, m := range mappings {
		a.categories[m.Agent] = m.Category
	}
}

// AgentSummaries builds one summary per agent in the snapshot, sorted by
// total cost descending. Share percentages are computed against the
// snapshot's pipeline totals.
func (a *Aggregator) AgentSummaries(status *budget.PipelineStatus) []AgentSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	summaries := make([]AgentSummary, 0, len(status.Agents))
	for agent, st := range status.Agents {
		summary := AgentSummary{
			Agent:          agent,
			Category:       a.categoryLocked(agent),
			TotalTokens:    st.CurrentTokens,
			TotalCostUSD:   st.CurrentCostUSD,
			BudgetExceeded: st.LimitExceeded,
		}
		if status.TotalTokens > 0 {
			summary.TokenSharePercent = float64(st.CurrentTokens) / float64(status.TotalTokens) * 100
		}
		if status.TotalCostUSD > 0 {
			summary.CostSharePercent = st.CurrentCostUSD / status.TotalCostUSD * 100
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].TotalCostUSD != summaries[j].TotalCostUSD {
			return summaries[i].TotalCostUSD > summaries[j].TotalCostUSD
		}
		return summaries[i].Agent < summaries[j].Agent
	})

	return summaries
}

// CategorySummaries groups the snapshot's agents by category, summing
// tokens and cost and counting agents per category. The result is sorted
// by total cost descending.
func (a *Aggregator) CategorySummaries(status *budget.PipelineStatus) []CategorySummary {
	summaries := a.AgentSummaries(status)

	byCategory := make(map[string]*CategorySummary)
	for _, s := range summaries {
		cs, ok := byCategory[s.Category]
		if !ok {
			cs = &CategorySummary{Category: s.Category}
			byCategory[s.Category] = cs
		}
		cs.TotalTokens += s.TotalTokens
		cs.TotalCostUSD += s.TotalCostUSD
		cs.AgentCount++
	}

	out := make([]CategorySummary, 0, len(byCategory))
	for _, cs := range byCategory {
		out = append(out, *cs)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCostUSD != out[j].TotalCostUSD {
			return out[i].TotalCostUSD > out[j].TotalCostUSD
		}
		return out[i].Category < out[j].Category
	})

	return out
}

// RecordTrendPoint appends a sample of the snapshot's totals to the trend
// series, carrying running cumulative sums. Once the series reaches the
// configured capacity the oldest points are evicted first.
func (a *Aggregator) RecordTrendPoint(status *budget.PipelineStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cumulativeTokens += status.TotalTokens
	a.cumulativeCostUSD += status.TotalCostUSD

	a.trends = append(a.trends, TrendPoint{
		Timestamp:         time.Now(),
		TotalTokens:       status.TotalTokens,
		TotalCostUSD:      status.TotalCostUSD,
		CumulativeTokens:  a.cumulativeTokens,
		CumulativeCostUSD: a.cumulativeCostUSD,
	})

	if excess := len(a.trends) - a.config.MaxTrendPoints; excess > 0 {
		a.trends = append([]TrendPoint(nil), a.trends[excess:]...)
	}
}

// UsageTrends returns the recorded trend series, oldest first.
func (a *Aggregator) UsageTrends() []TrendPoint {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]TrendPoint(nil), a.trends...)
}

// ClearTrends drops the trend series and its cumulative sums.
func (a *Aggregator) ClearTrends() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.trends = nil
	a.cumulativeTokens = 0
	a.cumulativeCostUSD = 0
}

// GenerateReport builds the full aggregated view of one snapshot.
func (a *Aggregator) GenerateReport(status *budget.PipelineStatus) *Report {
	summaries := a.AgentSummaries(status)

	top := summaries
	if len(top) > a.config.TopConsumers {
		top = top[:a.config.TopConsumers]
	}

	return &Report{
		GeneratedAt:       time.Now(),
		PipelineStatus:    status,
		AgentSummaries:    summaries,
		CategorySummaries: a.CategorySummaries(status),
		TopConsumers:      append([]AgentSummary(nil), top...),
	}
}

// categoryLocked looks up an agent's category, defaulting to
// CategoryUncategorized. Caller must hold the aggregator lock.
func (a *Aggregator) categoryLocked(agent string) string {
	if category, ok := a.categories[agent]; ok && category != "" {
		return category
	}
	return CategoryUncategorized
}
