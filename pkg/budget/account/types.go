package account

import (
	"time"

	"mercator-hq/ganymede/pkg/budget/persist"
)

// Dimension identifies a limited resource dimension.
type Dimension string

const (
	// DimensionToken limits by accumulated token count.
	DimensionToken Dimension = "token"

	// DimensionCost limits by accumulated cost in USD.
	DimensionCost Dimension = "cost"
)

// Severity classifies how close a warning threshold is to the hard limit.
type Severity string

const (
	// SeverityInfo marks thresholds below 75 percent.
	SeverityInfo Severity = "info"

	// SeverityWarning marks thresholds from 75 up to 90 percent.
	SeverityWarning Severity = "warning"

	// SeverityCritical marks thresholds at or above 90 percent.
	SeverityCritical Severity = "critical"
)

// DefaultWarningThresholds are the threshold percentages applied when a
// config does not specify its own.
var DefaultWarningThresholds = []int{50, 75, 90}

// Warning is emitted when usage crosses a configured threshold for a
// limited dimension.
type Warning struct {
	// Type is the dimension whose threshold was crossed.
	Type Dimension

	// ThresholdPercent is the threshold that fired.
	ThresholdPercent int

	// Severity classifies the threshold.
	Severity Severity

	// At is when the warning fired.
	At time.Time
}

// UsageResult is the outcome of a RecordUsage call.
type UsageResult struct {
	// Allowed is false when a hard limit was exceeded and no override
	// is active. The counters are updated either way.
	Allowed bool

	// Warnings lists the thresholds that fired during this call.
	Warnings []Warning

	// Reason names the exceeded dimension when Allowed is false.
	Reason string
}

// EstimateResult is the outcome of a non-mutating limit simulation.
type EstimateResult struct {
	// Allowed is false when the simulated usage would exceed a hard limit.
	Allowed bool

	// Reason names the dimension that would be exceeded.
	Reason string
}

// Status is a point-in-time view of an account, fully derived from its
// counters and limits at call time.
type Status struct {
	// CurrentTokens is the accumulated token count.
	CurrentTokens int64

	// CurrentCostUSD is the accumulated cost in USD.
	CurrentCostUSD float64

	// TokenLimit is the configured token limit. Nil means unlimited.
	TokenLimit *int64

	// CostLimitUSD is the configured cost limit. Nil means unlimited.
	CostLimitUSD *float64

	// TokenUsagePercent is usage against the token limit (0 if unlimited).
	TokenUsagePercent float64

	// CostUsagePercent is usage against the cost limit (0 if unlimited).
	CostUsagePercent float64

	// WarningExceeded is true when any warning threshold is currently
	// crossed on a limited dimension.
	WarningExceeded bool

	// LimitExceeded is true when usage has reached a hard limit,
	// regardless of the override flag.
	LimitExceeded bool

	// ActiveWarnings lists the currently-crossed thresholds. Unlike the
	// warning history this reflects present usage, not past events.
	ActiveWarnings []Warning

	// RemainingTokens is limit minus usage, floored at zero.
	// Nil when there is no token limit.
	RemainingTokens *int64

	// RemainingCostUSD is limit minus usage, floored at zero.
	// Nil when there is no cost limit.
	RemainingCostUSD *float64
}

// Config enumerates every recognized account option. It is a closed
// structure: unknown knobs do not exist, and invalid values are corrected
// at construction time rather than discovered at use time.
type Config struct {
	// TokenLimit is the hard token limit. Nil means unlimited.
	TokenLimit *int64

	// CostLimitUSD is the hard cost limit in USD. Nil means unlimited.
	CostLimitUSD *float64

	// WarningThresholds are the percentages at which warnings fire,
	// in ascending order. Defaults to DefaultWarningThresholds.
	WarningThresholds []int

	// Category groups this account for reporting and registry defaults.
	// The account itself does not enforce anything based on it.
	Category string

	// SessionID keys the persisted snapshot. Required when Store is set.
	SessionID string

	// Store enables write-through persistence when non-nil.
	Store persist.Store

	// OnBudgetExceeded is invoked after a RecordUsage call results in
	// Allowed=false. This is the integration point with external
	// alerting; the account never evaluates alert conditions itself.
	OnBudgetExceeded func()
}
