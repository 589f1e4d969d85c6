package budget

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/budget/account"
	"mercator-hq/ganymede/pkg/budget/history"
	"mercator-hq/ganymede/pkg/budget/persist"
)

// Registry owns one budget account per agent name and provides the
// pipeline-wide aggregate view and the inter-agent transfer protocol.
//
// Accounts are created lazily on first reference. Each account is privately
// owned by its map entry: the registry is the only component allowed to
// mutate two accounts in one operation, which is exactly what transfers
// require.
type Registry struct {
	mu       sync.RWMutex
	accounts map[string]*account.Account

	pipeline   PipelineLimits
	categories map[string]CategoryLimits

	sessionID string
	store     persist.Store
	archive   *history.Archive

	onExceeded func(agent string)
	metrics    *Metrics

	transfers []TransferRecord

	logger *slog.Logger
}

// NewRegistry creates a registry with the given configuration.
// Zero-value pipeline limits and a nil category table fall back to the
// standard defaults.
func NewRegistry(cfg Config) *Registry {
	pipeline := cfg.Pipeline
	if pipeline == (PipelineLimits{}) {
		pipeline = DefaultPipelineLimits()
	}
	if pipeline.WarningThreshold <= 0 || pipeline.WarningThreshold > 1 {
		pipeline.WarningThreshold = DefaultPipelineLimits().WarningThreshold
	}

	categories := cfg.Categories
	if categories == nil {
		categories = DefaultCategoryLimits()
	}

	sessionID := cfg.SessionID
	if sessionID == "" && cfg.Store != nil {
		sessionID = uuid.NewString()
	}

	return &Registry{
		accounts:   make(map[string]*account.Account),
		pipeline:   pipeline,
		categories: categories,
		sessionID:  sessionID,
		store:      cfg.Store,
		archive:    cfg.Archive,
		onExceeded: cfg.OnBudgetExceeded,
		metrics:    cfg.Metrics,
		logger:     slog.Default().With("component", "budget.registry"),
	}
}

// SessionID returns the session id persisted account snapshots are keyed
// under. Empty when persistence is disabled.
func (r *Registry) SessionID() string {
	return r.sessionID
}

// AgentBudget returns the account for the named agent, creating it on
// first reference. Explicit limits in cfg win over the agent category's
// defaults. A second call with the same name returns the same instance
// regardless of the config argument.
func (r *Registry) AgentBudget(name string, cfg *AccountConfig) *account.Account {
	r.mu.RLock()
	acct, ok := r.accounts[name]
	r.mu.RUnlock()
	if ok {
		return acct
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if acct, ok := r.accounts[name]; ok {
		return acct
	}

	acct = account.New(name, r.accountConfigLocked(name, cfg))
	r.accounts[name] = acct

	r.logger.Debug("agent budget created",
		"agent", name,
		"category", acct.Category(),
	)

	return acct
}

// accountConfigLocked resolves the account.Config for a new agent,
// applying category defaults where no explicit limit is given.
// Caller must hold the registry lock.
func (r *Registry) accountConfigLocked(name string, cfg *AccountConfig) account.Config {
	if cfg == nil {
		cfg = &AccountConfig{}
	}

	out := account.Config{
		TokenLimit:        cfg.TokenLimit,
		CostLimitUSD:      cfg.CostLimitUSD,
		WarningThresholds: cfg.WarningThresholds,
		Category:          cfg.Category,
	}

	if defaults, ok := r.categories[cfg.Category]; ok {
		if out.TokenLimit == nil && defaults.MaxTokens > 0 {
			limit := defaults.MaxTokens
			out.TokenLimit = &limit
		}
		if out.CostLimitUSD == nil && defaults.MaxCostUSD > 0 {
			limit := defaults.MaxCostUSD
			out.CostLimitUSD = &limit
		}
	}

	if r.store != nil && r.sessionID != "" {
		out.Store = r.store
		out.SessionID = r.accountSessionID(name)
	}

	if r.onExceeded != nil || r.metrics != nil {
		callback := r.onExceeded
		metrics := r.metrics
		out.OnBudgetExceeded = func() {
			if metrics != nil {
				metrics.RecordDenial(name)
			}
			if callback != nil {
				callback(name)
			}
		}
	}

	return out
}

// accountSessionID derives the per-account snapshot key. One pipeline
// session produces one snapshot file per agent.
func (r *Registry) accountSessionID(agent string) string {
	return fmt.Sprintf("%s-%s", r.sessionID, agent)
}

// RecordAgentUsage routes a usage record to the named agent's account,
// creating it with defaults first when absent. The account's
// exceeded-callback fires when the call results in Allowed=false.
func (r *Registry) RecordAgentUsage(name string, tokensIn, tokensOut int64, costUSD float64) account.UsageResult {
	acct := r.AgentBudget(name, nil)
	result := acct.RecordUsage(tokensIn, tokensOut, costUSD)

	if r.metrics != nil {
		r.metrics.RecordUsage(name, tokensIn+tokensOut, costUSD, result)
	}

	return result
}

// EstimateAgentUsage checks whether the given usage deltas would be
// allowed, without recording anything. The agent's own limits are checked
// first; when those pass, the pipeline aggregate plus the delta is checked
// against the pipeline limits, so an agent with headroom can still be
// refused when the pipeline as a whole is out of budget.
func (r *Registry) EstimateAgentUsage(name string, tokensIn, tokensOut int64, costUSD float64) account.EstimateResult {
	acct := r.AgentBudget(name, nil)

	est := acct.EstimateUsage(tokensIn+tokensOut, costUSD)
	if !est.Allowed {
		return est
	}

	totalTokens, totalCost, limits := r.totals()

	if limits.MaxTokens > 0 && totalTokens+tokensIn+tokensOut > limits.MaxTokens {
		return account.EstimateResult{
			Allowed: false,
			Reason: fmt.Sprintf("Pipeline token budget would be exceeded: %d + %d > %d",
				totalTokens, tokensIn+tokensOut, limits.MaxTokens),
		}
	}

	if limits.MaxCostUSD > 0 && totalCost+costUSD > limits.MaxCostUSD {
		return account.EstimateResult{
			Allowed: false,
			Reason: fmt.Sprintf("Pipeline cost budget would be exceeded: %.4f + %.4f > %.4f",
				totalCost, costUSD, limits.MaxCostUSD),
		}
	}

	return account.EstimateResult{Allowed: true}
}

// PipelineStatus returns the aggregate snapshot: summed usage, percentages
// against the pipeline limits, per-agent statuses, and the exceeded and
// warning agent lists. Everything is recomputed from current account state.
func (r *Registry) PipelineStatus() *PipelineStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := &PipelineStatus{
		MaxTokens:   r.pipeline.MaxTokens,
		MaxCostUSD:  r.pipeline.MaxCostUSD,
		Agents:      make(map[string]account.Status, len(r.accounts)),
		GeneratedAt: time.Now(),
	}

	for name, acct := range r.accounts {
		st := acct.Status()
		status.Agents[name] = st
		status.TotalTokens += st.CurrentTokens
		status.TotalCostUSD += st.CurrentCostUSD

		switch {
		case st.LimitExceeded:
			status.ExceededAgents = append(status.ExceededAgents, name)
		case st.WarningExceeded:
			status.WarningAgents = append(status.WarningAgents, name)
		}
	}

	sort.Strings(status.ExceededAgents)
	sort.Strings(status.WarningAgents)

	if r.pipeline.MaxTokens > 0 {
		status.TokenUsagePercent = float64(status.TotalTokens) / float64(r.pipeline.MaxTokens) * 100
	}
	if r.pipeline.MaxCostUSD > 0 {
		status.CostUsagePercent = status.TotalCostUSD / r.pipeline.MaxCostUSD * 100
	}

	warnPct := r.pipeline.WarningThreshold * 100
	status.WarningExceeded = status.TokenUsagePercent >= warnPct || status.CostUsagePercent >= warnPct
	status.LimitExceeded = status.TokenUsagePercent >= 100 || status.CostUsagePercent >= 100

	if r.metrics != nil {
		r.metrics.UpdatePipeline(status)
	}

	return status
}

// HasExceededBudgets reports whether any agent's own hard limit is
// currently exceeded.
func (r *Registry) HasExceededBudgets() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, acct := range r.accounts {
		if acct.Status().LimitExceeded {
			return true
		}
	}
	return false
}

// PipelineBudgetExceeded reports whether aggregate usage has reached a
// pipeline-wide limit.
func (r *Registry) PipelineBudgetExceeded() bool {
	totalTokens, totalCost, limits := r.totals()

	if limits.MaxTokens > 0 && totalTokens >= limits.MaxTokens {
		return true
	}
	if limits.MaxCostUSD > 0 && totalCost >= limits.MaxCostUSD {
		return true
	}
	return false
}

// totals sums usage over all accounts under the registry read lock and
// returns the pipeline limits from the same critical section, so callers
// compare a consistent snapshot even while SetPipelineLimits runs.
func (r *Registry) totals() (int64, float64, PipelineLimits) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tokens int64
	var cost float64
	for _, acct := range r.accounts {
		st := acct.Status()
		tokens += st.CurrentTokens
		cost += st.CurrentCostUSD
	}
	return tokens, cost, r.pipeline
}

// ResetAgent zeroes the named agent's counters and re-arms its warnings.
// Returns false when the agent is unknown.
func (r *Registry) ResetAgent(name string) bool {
	r.mu.RLock()
	acct, ok := r.accounts[name]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	acct.Reset()
	return true
}

// ResetAll resets every registered account.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	accounts := make([]*account.Account, 0, len(r.accounts))
	for _, acct := range r.accounts {
		accounts = append(accounts, acct)
	}
	r.mu.RUnlock()

	for _, acct := range accounts {
		acct.Reset()
	}
}

// RemoveAgent removes the named account entirely, deleting its persisted
// snapshot when persistence is enabled. Returns false when unknown.
func (r *Registry) RemoveAgent(name string) bool {
	r.mu.Lock()
	_, ok := r.accounts[name]
	if ok {
		delete(r.accounts, name)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	if r.store != nil && r.sessionID != "" {
		if err := r.store.Delete(r.accountSessionID(name)); err != nil {
			r.logger.Warn("failed to delete persisted snapshot",
				"agent", name,
				"error", err,
			)
		}
	}

	return true
}

// Clear removes all accounts. Transfer history is kept; use
// ClearTransferHistory to drop it.
func (r *Registry) Clear() {
	r.mu.Lock()
	names := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		names = append(names, name)
	}
	r.accounts = make(map[string]*account.Account)
	r.mu.Unlock()

	if r.store != nil && r.sessionID != "" {
		for _, name := range names {
			if err := r.store.Delete(r.accountSessionID(name)); err != nil {
				r.logger.Warn("failed to delete persisted snapshot",
					"agent", name,
					"error", err,
				)
			}
		}
	}
}

// RegisteredAgents returns the sorted names of all registered agents.
func (r *Registry) RegisteredAgents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.accounts))
	for name := range r.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of registered agents.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

// SummaryReport renders a human-readable summary combining the pipeline
// status and one line per agent. The output is plain text; rendering to
// any particular UI is the caller's concern.
func (r *Registry) SummaryReport() string {
	status := r.PipelineStatus()

	var sb strings.Builder

	sb.WriteString("Pipeline Budget Summary\n")
	sb.WriteString("=======================\n")
	fmt.Fprintf(&sb, "Tokens: %d / %d (%.1f%%)\n", status.TotalTokens, status.MaxTokens, status.TokenUsagePercent)
	fmt.Fprintf(&sb, "Cost:   $%.4f / $%.2f (%.1f%%)\n", status.TotalCostUSD, status.MaxCostUSD, status.CostUsagePercent)
	if status.LimitExceeded {
		sb.WriteString("Status: EXCEEDED\n")
	} else if status.WarningExceeded {
		sb.WriteString("Status: WARNING\n")
	} else {
		sb.WriteString("Status: OK\n")
	}

	names := make([]string, 0, len(status.Agents))
	for name := range status.Agents {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		sb.WriteString("\nAgents\n")
		sb.WriteString("------\n")
	}
	for _, name := range names {
		st := status.Agents[name]
		line := fmt.Sprintf("%-20s tokens=%d", name, st.CurrentTokens)
		if st.TokenLimit != nil {
			line += fmt.Sprintf("/%d (%.1f%%)", *st.TokenLimit, st.TokenUsagePercent)
		}
		line += fmt.Sprintf(" cost=$%.4f", st.CurrentCostUSD)
		if st.CostLimitUSD != nil {
			line += fmt.Sprintf("/$%.2f (%.1f%%)", *st.CostLimitUSD, st.CostUsagePercent)
		}
		if st.LimitExceeded {
			line += " [EXCEEDED]"
		} else if st.WarningExceeded {
			line += " [WARNING]"
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// SetPipelineLimits replaces the pipeline-wide limits. Subsequent
// aggregate checks use the new values immediately.
func (r *Registry) SetPipelineLimits(limits PipelineLimits) {
	if limits.WarningThreshold <= 0 || limits.WarningThreshold > 1 {
		limits.WarningThreshold = DefaultPipelineLimits().WarningThreshold
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipeline = limits
}

// SetCategoryDefaults replaces the category default table. Existing
// accounts keep their limits; only future account creation is affected.
func (r *Registry) SetCategoryDefaults(categories map[string]CategoryLimits) {
	if categories == nil {
		categories = DefaultCategoryLimits()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = categories
}

// Close flushes and releases the persistence store and transfer archive,
// when the registry owns them.
func (r *Registry) Close() error {
	var firstErr error

	if r.archive != nil {
		if err := r.archive.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
