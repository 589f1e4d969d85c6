package budget

import (
	"time"

	"mercator-hq/ganymede/pkg/budget/account"
	"mercator-hq/ganymede/pkg/budget/history"
	"mercator-hq/ganymede/pkg/budget/persist"
)

// PipelineLimits are the aggregate limits applied against the sum of all
// accounts' usage.
type PipelineLimits struct {
	// MaxTokens is the pipeline-wide token limit.
	MaxTokens int64

	// MaxCostUSD is the pipeline-wide cost limit in USD.
	MaxCostUSD float64

	// WarningThreshold is the fraction (0.0-1.0) of a pipeline limit at
	// which the aggregate status reports a warning. Default: 0.8.
	WarningThreshold float64
}

// DefaultPipelineLimits returns the pipeline limits applied when a config
// does not specify its own.
func DefaultPipelineLimits() PipelineLimits {
	return PipelineLimits{
		MaxTokens:        1_500_000,
		MaxCostUSD:       50.0,
		WarningThreshold: 0.8,
	}
}

// CategoryLimits are the default per-agent limits applied when an account
// is created for a categorized agent without explicit limits.
type CategoryLimits struct {
	// MaxTokens is the default token limit for agents in this category.
	MaxTokens int64

	// MaxCostUSD is the default cost limit. Zero means no cost limit.
	MaxCostUSD float64
}

// DefaultCategoryLimits returns the category defaults observed in practice
// for standard pipeline agent categories.
func DefaultCategoryLimits() map[string]CategoryLimits {
	return map[string]CategoryLimits{
		"document":       {MaxTokens: 150_000},
		"execution":      {MaxTokens: 150_000},
		"analysis":       {MaxTokens: 150_000},
		"infrastructure": {MaxTokens: 50_000},
	}
}

// AccountConfig carries the recognized per-agent creation options.
// Fields left zero fall back to the agent's category defaults.
type AccountConfig struct {
	// TokenLimit is an explicit token limit. Nil defers to the category.
	TokenLimit *int64

	// CostLimitUSD is an explicit cost limit. Nil defers to the category.
	CostLimitUSD *float64

	// Category selects the default limits applied when no explicit limit
	// is given, and groups the agent for reporting.
	Category string

	// WarningThresholds overrides the default warning percentages.
	WarningThresholds []int
}

// Config enumerates every recognized registry option.
type Config struct {
	// Pipeline sets the aggregate limits. Zero-value fields fall back to
	// DefaultPipelineLimits.
	Pipeline PipelineLimits

	// Categories maps category names to default per-agent limits.
	// Nil falls back to DefaultCategoryLimits.
	Categories map[string]CategoryLimits

	// SessionID keys persisted account snapshots. A fresh id is generated
	// when empty and persistence is enabled.
	SessionID string

	// Store enables per-account snapshot persistence when non-nil.
	Store persist.Store

	// Archive receives a durable copy of every successful transfer when
	// non-nil. Failures are logged, never propagated.
	Archive *history.Archive

	// OnBudgetExceeded is invoked with the agent name whenever a
	// RecordAgentUsage call results in Allowed=false.
	OnBudgetExceeded func(agent string)

	// Metrics publishes accounting metrics when non-nil.
	Metrics *Metrics
}

// PipelineStatus is an aggregate snapshot of the whole pipeline. The
// exceeded and warning lists are recomputed from current account state on
// every call, never cached.
type PipelineStatus struct {
	// TotalTokens is the sum of all accounts' token counters.
	TotalTokens int64

	// TotalCostUSD is the sum of all accounts' cost counters.
	TotalCostUSD float64

	// MaxTokens is the pipeline-wide token limit.
	MaxTokens int64

	// MaxCostUSD is the pipeline-wide cost limit.
	MaxCostUSD float64

	// TokenUsagePercent is aggregate token usage against the pipeline limit.
	TokenUsagePercent float64

	// CostUsagePercent is aggregate cost usage against the pipeline limit.
	CostUsagePercent float64

	// WarningExceeded is true when aggregate usage has crossed the
	// pipeline warning threshold on either dimension.
	WarningExceeded bool

	// LimitExceeded is true when aggregate usage has reached a pipeline
	// limit on either dimension.
	LimitExceeded bool

	// ExceededAgents names the agents whose own hard limit is exceeded.
	ExceededAgents []string

	// WarningAgents names the agents past a warning threshold but not
	// yet past their hard limit.
	WarningAgents []string

	// Agents maps each agent name to its point-in-time account status.
	Agents map[string]account.Status

	// GeneratedAt is when this snapshot was taken.
	GeneratedAt time.Time
}

// TransferResult is the outcome of a transfer attempt.
type TransferResult struct {
	// Success is false when any validation check failed. No mutation
	// occurs on failure.
	Success bool

	// TokensTransferred is the token amount moved (token transfers).
	TokensTransferred int64

	// CostTransferred is the USD amount moved (cost transfers).
	CostTransferred float64

	// SourceNewLimit is the source's limit after the transfer.
	SourceNewLimit int64

	// TargetNewLimit is the target's limit after the transfer.
	TargetNewLimit int64

	// SourceNewCostLimit is the source's cost limit after a cost transfer.
	SourceNewCostLimit float64

	// TargetNewCostLimit is the target's cost limit after a cost transfer.
	TargetNewCostLimit float64

	// Error is the human-readable failure reason.
	Error string
}

// TransferRecord is one entry in the transfer audit history.
// Records are appended only for successful transfers; failed attempts are
// reported to the caller but leave no trace here.
type TransferRecord struct {
	// ID uniquely identifies the transfer.
	ID string

	// FromAgent is the donating agent.
	FromAgent string

	// ToAgent is the receiving agent.
	ToAgent string

	// Tokens is the token amount moved. Nil for cost transfers.
	Tokens *int64

	// CostUSD is the USD amount moved. Nil for token transfers.
	CostUSD *float64

	// Timestamp is when the transfer completed.
	Timestamp time.Time

	// Success records the transfer outcome. Always true for appended
	// records; the field exists so serialized history is self-describing.
	Success bool

	// Error is empty for appended records.
	Error string
}
