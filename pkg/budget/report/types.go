package report

import (
	"time"

	"mercator-hq/ganymede/pkg/budget"
)

// CategoryUncategorized is the category assigned to agents without a
// registered mapping.
const CategoryUncategorized = "uncategorized"

// SuggestionType classifies an optimization suggestion.
type SuggestionType string

const (
	// SuggestionIncrease proposes raising an agent's limit.
	SuggestionIncrease SuggestionType = "increase"

	// SuggestionDecrease proposes lowering an agent's limit.
	SuggestionDecrease SuggestionType = "decrease"

	// SuggestionRebalance proposes moving budget away from a dominant agent.
	SuggestionRebalance SuggestionType = "rebalance"

	// SuggestionWarning flags agents that have exceeded their budget.
	SuggestionWarning SuggestionType = "warning"
)

// Config enumerates the aggregator's named, overridable thresholds.
// Zero-value fields fall back to the defaults.
type Config struct {
	// IncreasePercent is the token usage percentage at or above which an
	// increase suggestion fires for an agent. Default: 90.
	IncreasePercent float64

	// DecreasePercent is the token usage percentage at or below which a
	// decrease suggestion fires for a limited agent. Default: 15.
	DecreasePercent float64

	// RebalanceSharePercent is the share of pipeline tokens at or above
	// which a single agent is considered dominant. Default: 80.
	RebalanceSharePercent float64

	// TopConsumers caps the top-consumer list in reports. Default: 5.
	TopConsumers int

	// MaxTrendPoints bounds the trend series; the oldest points are
	// evicted first. Default: 100.
	MaxTrendPoints int
}

// DefaultConfig returns the default aggregator configuration.
func DefaultConfig() Config {
	return Config{
		IncreasePercent:       90,
		DecreasePercent:       15,
		RebalanceSharePercent: 80,
		TopConsumers:          5,
		MaxTrendPoints:        100,
	}
}

// applyDefaults fills zero-value fields from DefaultConfig.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.IncreasePercent <= 0 {
		c.IncreasePercent = defaults.IncreasePercent
	}
	if c.DecreasePercent <= 0 {
		c.DecreasePercent = defaults.DecreasePercent
	}
	if c.RebalanceSharePercent <= 0 {
		c.RebalanceSharePercent = defaults.RebalanceSharePercent
	}
	if c.TopConsumers <= 0 {
		c.TopConsumers = defaults.TopConsumers
	}
	if c.MaxTrendPoints <= 0 {
		c.MaxTrendPoints = defaults.MaxTrendPoints
	}
}

// CategoryMapping associates an agent with its reporting category.
type CategoryMapping struct {
	// Agent is the agent name.
	Agent string

	// Category is the reporting category.
	Category string
}

// AgentSummary is the per-agent slice of a pipeline snapshot.
type AgentSummary struct {
	// Agent is the agent name.
	Agent string

	// Category is the agent's reporting category.
	Category string

	// TotalTokens is the agent's accumulated token count.
	TotalTokens int64

	// TotalCostUSD is the agent's accumulated cost in USD.
	TotalCostUSD float64

	// TokenSharePercent is the agent's share of the pipeline token total.
	TokenSharePercent float64

	// CostSharePercent is the agent's share of the pipeline cost total.
	CostSharePercent float64

	// BudgetExceeded is copied from the agent's account status.
	BudgetExceeded bool
}

// CategorySummary aggregates agent summaries sharing a category.
type CategorySummary struct {
	// Category is the reporting category.
	Category string

	// TotalTokens is the summed token count of the category's agents.
	TotalTokens int64

	// TotalCostUSD is the summed cost of the category's agents.
	TotalCostUSD float64

	// AgentCount is the number of agents in the category.
	AgentCount int
}

// Suggestion is one optimization recommendation derived from a snapshot.
type Suggestion struct {
	// Type classifies the suggestion.
	Type SuggestionType

	// Target names the agent (or agents, comma-separated for pipeline
	// warnings) the suggestion applies to.
	Target string

	// Message is the human-readable recommendation.
	Message string
}

// TrendPoint is one timestamped sample in the bounded trend series.
type TrendPoint struct {
	// Timestamp is when the sample was recorded.
	Timestamp time.Time

	// TotalTokens is the pipeline token total at sample time.
	TotalTokens int64

	// TotalCostUSD is the pipeline cost total at sample time.
	TotalCostUSD float64

	// CumulativeTokens is the running sum of sampled token totals.
	CumulativeTokens int64

	// CumulativeCostUSD is the running sum of sampled cost totals.
	CumulativeCostUSD float64
}

// Report is a full aggregated view of one pipeline snapshot.
type Report struct {
	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time

	// PipelineStatus is the snapshot the report was built from.
	PipelineStatus *budget.PipelineStatus

	// AgentSummaries lists all agents, sorted by cost descending.
	AgentSummaries []AgentSummary

	// CategorySummaries groups the agent summaries by category.
	CategorySummaries []CategorySummary

	// TopConsumers is AgentSummaries truncated to the configured cap.
	TopConsumers []AgentSummary
}
