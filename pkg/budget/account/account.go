package account

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/budget/persist"
)

// Account tracks token and cost consumption for a single agent.
//
// All mutation goes through the account's own methods; the registry owns
// the map entry but never touches fields directly. Every method is safe
// for concurrent use.
type Account struct {
	name string

	mu sync.Mutex

	currentTokens  int64
	currentCostUSD float64

	tokenLimit   *int64
	costLimitUSD *float64

	thresholds []int
	triggered  map[string]struct{}
	history    []Warning

	override bool
	category string

	sessionID  string
	store      persist.Store
	onExceeded func()

	logger *slog.Logger
}

// New creates an account for the named agent.
//
// When cfg.Store is set and a snapshot exists for cfg.SessionID, the
// persisted state (counters, triggered warnings, override flag, limits,
// warning history) is restored before the account is returned. Absence of
// a snapshot leaves default-zero state.
func New(name string, cfg Config) *Account {
	thresholds := cfg.WarningThresholds
	if len(thresholds) == 0 {
		thresholds = DefaultWarningThresholds
	}
	thresholds = append([]int(nil), thresholds...)
	sort.Ints(thresholds)

	a := &Account{
		name:         name,
		tokenLimit:   copyInt64(cfg.TokenLimit),
		costLimitUSD: copyFloat64(cfg.CostLimitUSD),
		thresholds:   thresholds,
		triggered:    make(map[string]struct{}),
		category:     cfg.Category,
		sessionID:    cfg.SessionID,
		store:        cfg.Store,
		onExceeded:   cfg.OnBudgetExceeded,
		logger:       slog.Default().With("component", "budget.account", "agent", name),
	}

	if a.store != nil && a.sessionID != "" {
		a.restore()
	}

	return a
}

// Name returns the agent name this account belongs to.
func (a *Account) Name() string {
	return a.name
}

// Category returns the reporting category, if any.
func (a *Account) Category() string {
	return a.category
}

// RecordUsage adds the given deltas to the account's counters, evaluates
// warning thresholds and hard limits, and persists the new state when
// persistence is configured.
//
// The counters are updated even when the result is not allowed: the model
// call already happened, so its consumption is a fact. Callers decide
// whether to stop dispatching further work.
func (a *Account) RecordUsage(tokensIn, tokensOut int64, costUSD float64) UsageResult {
	a.mu.Lock()

	a.currentTokens += tokensIn + tokensOut
	a.currentCostUSD += costUSD

	result := UsageResult{Allowed: true}
	now := time.Now()

	if a.tokenLimit != nil {
		pct := percentOf(float64(a.currentTokens), float64(*a.tokenLimit))
		result.Warnings = append(result.Warnings, a.fireThresholdsLocked(DimensionToken, pct, now)...)
		if pct >= 100 && !a.override {
			result.Allowed = false
			result.Reason = "Token limit exceeded"
		}
	}

	if a.costLimitUSD != nil {
		pct := percentOf(a.currentCostUSD, *a.costLimitUSD)
		result.Warnings = append(result.Warnings, a.fireThresholdsLocked(DimensionCost, pct, now)...)
		if pct >= 100 && !a.override && result.Allowed {
			result.Allowed = false
			result.Reason = "Cost limit exceeded"
		}
	}

	a.saveLocked()
	a.mu.Unlock()

	if !result.Allowed && a.onExceeded != nil {
		a.onExceeded()
	}

	return result
}

// EstimateUsage simulates recording the given deltas without mutating any
// state: no counters move, no warnings arm, nothing is persisted.
func (a *Account) EstimateUsage(deltaTokens int64, deltaCostUSD float64) EstimateResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tokenLimit != nil {
		if percentOf(float64(a.currentTokens+deltaTokens), float64(*a.tokenLimit)) >= 100 && !a.override {
			return EstimateResult{
				Allowed: false,
				Reason:  fmt.Sprintf("Token limit exceeded: %d + %d would reach limit %d", a.currentTokens, deltaTokens, *a.tokenLimit),
			}
		}
	}

	if a.costLimitUSD != nil {
		if percentOf(a.currentCostUSD+deltaCostUSD, *a.costLimitUSD) >= 100 && !a.override {
			return EstimateResult{
				Allowed: false,
				Reason:  fmt.Sprintf("Cost limit exceeded: %.4f + %.4f would reach limit %.4f", a.currentCostUSD, deltaCostUSD, *a.costLimitUSD),
			}
		}
	}

	return EstimateResult{Allowed: true}
}

// AdjustTokenLimit replaces the token limit and returns the previous one.
// Passing nil removes the limit. Subsequent checks use the new value
// immediately; already-triggered warnings are not re-validated.
func (a *Account) AdjustTokenLimit(newLimit *int64) *int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous := a.tokenLimit
	a.tokenLimit = copyInt64(newLimit)
	a.saveLocked()
	return previous
}

// AdjustCostLimit replaces the cost limit and returns the previous one.
// Passing nil removes the limit.
func (a *Account) AdjustCostLimit(newLimit *float64) *float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous := a.costLimitUSD
	a.costLimitUSD = copyFloat64(newLimit)
	a.saveLocked()
	return previous
}

// EnableOverride permits recording to proceed past hard limits.
func (a *Account) EnableOverride() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.override = true
	a.saveLocked()
}

// DisableOverride restores normal hard-limit enforcement.
func (a *Account) DisableOverride() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.override = false
	a.saveLocked()
}

// IsOverrideActive reports whether the hard-limit override is enabled.
func (a *Account) IsOverrideActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.override
}

// Status returns a point-in-time view derived from the current counters
// and limits.
func (a *Account) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	status := Status{
		CurrentTokens:  a.currentTokens,
		CurrentCostUSD: a.currentCostUSD,
		TokenLimit:     copyInt64(a.tokenLimit),
		CostLimitUSD:   copyFloat64(a.costLimitUSD),
	}

	now := time.Now()

	if a.tokenLimit != nil {
		status.TokenUsagePercent = percentOf(float64(a.currentTokens), float64(*a.tokenLimit))
		remaining := *a.tokenLimit - a.currentTokens
		if remaining < 0 {
			remaining = 0
		}
		status.RemainingTokens = &remaining
		status.ActiveWarnings = append(status.ActiveWarnings, activeThresholds(DimensionToken, status.TokenUsagePercent, a.thresholds, now)...)
		if status.TokenUsagePercent >= 100 {
			status.LimitExceeded = true
		}
	}

	if a.costLimitUSD != nil {
		status.CostUsagePercent = percentOf(a.currentCostUSD, *a.costLimitUSD)
		remaining := *a.costLimitUSD - a.currentCostUSD
		if remaining < 0 {
			remaining = 0
		}
		status.RemainingCostUSD = &remaining
		status.ActiveWarnings = append(status.ActiveWarnings, activeThresholds(DimensionCost, status.CostUsagePercent, a.thresholds, now)...)
		if status.CostUsagePercent >= 100 {
			status.LimitExceeded = true
		}
	}

	status.WarningExceeded = len(status.ActiveWarnings) > 0

	return status
}

// Reset zeroes the counters and re-arms all warning thresholds. Limits,
// category, override state, and the warning history are kept.
func (a *Account) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.currentTokens = 0
	a.currentCostUSD = 0
	a.triggered = make(map[string]struct{})
	a.saveLocked()
}

// WarningHistory returns every warning the account has ever fired, in
// firing order. Unlike Status().ActiveWarnings this is an append-only log
// that survives Reset.
func (a *Account) WarningHistory() []Warning {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Warning(nil), a.history...)
}

// SaveToStore persists the current state immediately.
// Returns false when persistence is not configured or the write failed;
// failures are logged and never corrupt in-memory state.
func (a *Account) SaveToStore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.store == nil || a.sessionID == "" {
		return false
	}
	return a.saveLocked()
}

// fireThresholdsLocked emits a warning for every configured threshold that
// the given usage percentage has crossed and that has not fired before.
// Caller must hold the account mutex.
func (a *Account) fireThresholdsLocked(dim Dimension, pct float64, now time.Time) []Warning {
	var fired []Warning

	for _, threshold := range a.thresholds {
		if pct < float64(threshold) {
			continue
		}

		key := warningKey(dim, threshold)
		if _, done := a.triggered[key]; done {
			continue
		}

		a.triggered[key] = struct{}{}
		w := Warning{
			Type:             dim,
			ThresholdPercent: threshold,
			Severity:         severityFor(threshold),
			At:               now,
		}
		fired = append(fired, w)
		a.history = append(a.history, w)
	}

	return fired
}

// saveLocked writes the current state through the store when persistence
// is configured. Failures are logged and reported, never propagated: the
// in-memory state stays authoritative even when durability is unavailable.
// Caller must hold the account mutex.
func (a *Account) saveLocked() bool {
	if a.store == nil || a.sessionID == "" {
		return false
	}

	snap := &persist.Snapshot{
		SessionID:      a.sessionID,
		CurrentTokens:  a.currentTokens,
		CurrentCostUSD: a.currentCostUSD,
		OverrideActive: a.override,
		SavedAt:        time.Now(),
		TokenLimit:     copyInt64(a.tokenLimit),
		CostLimitUSD:   copyFloat64(a.costLimitUSD),
	}

	snap.TriggeredWarnings = make([]string, 0, len(a.triggered))
	for key := range a.triggered {
		snap.TriggeredWarnings = append(snap.TriggeredWarnings, key)
	}
	sort.Strings(snap.TriggeredWarnings)

	snap.WarningHistory = make([]persist.WarningRecord, 0, len(a.history))
	for _, w := range a.history {
		snap.WarningHistory = append(snap.WarningHistory, persist.WarningRecord{
			Type:             string(w.Type),
			ThresholdPercent: w.ThresholdPercent,
			Severity:         string(w.Severity),
			At:               w.At,
		})
	}

	if err := a.store.Save(snap); err != nil {
		a.logger.Error("failed to persist budget snapshot",
			"session_id", a.sessionID,
			"error", err,
		)
		return false
	}

	return true
}

// restore loads the persisted snapshot for the configured session id and
// applies it. Runs once, from New, before the account is shared.
func (a *Account) restore() {
	snap, err := a.store.Load(a.sessionID)
	if err != nil {
		a.logger.Error("failed to load budget snapshot, starting fresh",
			"session_id", a.sessionID,
			"error", err,
		)
		return
	}
	if snap == nil {
		return
	}

	a.currentTokens = snap.CurrentTokens
	a.currentCostUSD = snap.CurrentCostUSD
	a.override = snap.OverrideActive

	if snap.TokenLimit != nil {
		a.tokenLimit = copyInt64(snap.TokenLimit)
	}
	if snap.CostLimitUSD != nil {
		a.costLimitUSD = copyFloat64(snap.CostLimitUSD)
	}

	for _, key := range snap.TriggeredWarnings {
		if _, _, ok := parseWarningKey(key); ok {
			a.triggered[key] = struct{}{}
		}
	}

	for _, rec := range snap.WarningHistory {
		a.history = append(a.history, Warning{
			Type:             Dimension(rec.Type),
			ThresholdPercent: rec.ThresholdPercent,
			Severity:         Severity(rec.Severity),
			At:               rec.At,
		})
	}

	a.logger.Info("restored budget state from snapshot",
		"session_id", a.sessionID,
		"tokens", a.currentTokens,
		"cost_usd", a.currentCostUSD,
	)
}

// severityFor maps a threshold percentage to its severity.
func severityFor(thresholdPercent int) Severity {
	switch {
	case thresholdPercent < 75:
		return SeverityInfo
	case thresholdPercent < 90:
		return SeverityWarning
	default:
		return SeverityCritical
	}
}

// activeThresholds returns a warning for every threshold the given usage
// percentage currently crosses, regardless of firing history.
func activeThresholds(dim Dimension, pct float64, thresholds []int, now time.Time) []Warning {
	var active []Warning
	for _, threshold := range thresholds {
		if pct >= float64(threshold) {
			active = append(active, Warning{
				Type:             dim,
				ThresholdPercent: threshold,
				Severity:         severityFor(threshold),
				At:               now,
			})
		}
	}
	return active
}

// warningKey builds the stable identity of a (dimension, threshold) pair.
// The same encoding appears in persisted snapshots.
func warningKey(dim Dimension, thresholdPercent int) string {
	return fmt.Sprintf("%s:%d", dim, thresholdPercent)
}

// parseWarningKey decodes a persisted warning key.
func parseWarningKey(key string) (Dimension, int, bool) {
	dim, pctStr, found := strings.Cut(key, ":")
	if !found {
		return "", 0, false
	}
	pct, err := strconv.Atoi(pctStr)
	if err != nil {
		return "", 0, false
	}
	return Dimension(dim), pct, true
}

// percentOf returns used/limit as a percentage, guarding against a zero
// or negative limit.
func percentOf(used, limit float64) float64 {
	if limit <= 0 {
		if used > 0 {
			return 100
		}
		return 0
	}
	return used / limit * 100
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func copyFloat64(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
