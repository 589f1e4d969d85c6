package budget

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/budget/history"
)

// TransferTokenBudget moves unused token limit capacity from one agent to
// another. Validation and the mutation of both accounts execute as a single
// critical section: either the transfer fully applies to both accounts or
// nothing changes, and no observer sees a half-applied state.
//
// Checks run in order and the first failure wins: both agents exist, the
// agents differ, the amount is positive, the source has a token limit
// (unlimited accounts cannot donate), and the source's remaining budget
// covers the amount. An unlimited target becomes limited to exactly the
// transferred amount.
func (r *Registry) TransferTokenBudget(from, to string, amount int64) TransferResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	source, ok := r.accounts[from]
	if !ok {
		return r.transferFailed(fmt.Sprintf("source agent %q not found", from))
	}
	target, ok := r.accounts[to]
	if !ok {
		return r.transferFailed(fmt.Sprintf("target agent %q not found", to))
	}
	if from == to {
		return r.transferFailed("cannot transfer budget to the same agent")
	}
	if amount <= 0 {
		return r.transferFailed("transfer amount must be positive")
	}

	sourceStatus := source.Status()
	if sourceStatus.TokenLimit == nil {
		return r.transferFailed(fmt.Sprintf("source agent %q has no token limit", from))
	}

	remaining := *sourceStatus.TokenLimit - sourceStatus.CurrentTokens
	if remaining < amount {
		return r.transferFailed(fmt.Sprintf(
			"Insufficient token budget: agent %q has %d remaining, requested %d",
			from, remaining, amount))
	}

	sourceNewLimit := *sourceStatus.TokenLimit - amount

	var targetNewLimit int64 = amount
	if targetLimit := target.Status().TokenLimit; targetLimit != nil {
		targetNewLimit = *targetLimit + amount
	}

	source.AdjustTokenLimit(&sourceNewLimit)
	target.AdjustTokenLimit(&targetNewLimit)

	tokens := amount
	r.appendTransferLocked(TransferRecord{
		ID:        uuid.NewString(),
		FromAgent: from,
		ToAgent:   to,
		Tokens:    &tokens,
		Timestamp: time.Now(),
		Success:   true,
	})

	r.logger.Info("token budget transferred",
		"from", from,
		"to", to,
		"tokens", amount,
		"source_new_limit", sourceNewLimit,
		"target_new_limit", targetNewLimit,
	)

	return TransferResult{
		Success:           true,
		TokensTransferred: amount,
		SourceNewLimit:    sourceNewLimit,
		TargetNewLimit:    targetNewLimit,
	}
}

// TransferCostBudget mirrors TransferTokenBudget for the cost dimension.
func (r *Registry) TransferCostBudget(from, to string, amountUSD float64) TransferResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	source, ok := r.accounts[from]
	if !ok {
		return r.transferFailed(fmt.Sprintf("source agent %q not found", from))
	}
	target, ok := r.accounts[to]
	if !ok {
		return r.transferFailed(fmt.Sprintf("target agent %q not found", to))
	}
	if from == to {
		return r.transferFailed("cannot transfer budget to the same agent")
	}
	if amountUSD <= 0 {
		return r.transferFailed("transfer amount must be positive")
	}

	sourceStatus := source.Status()
	if sourceStatus.CostLimitUSD == nil {
		return r.transferFailed(fmt.Sprintf("source agent %q has no cost limit", from))
	}

	remaining := *sourceStatus.CostLimitUSD - sourceStatus.CurrentCostUSD
	if remaining < amountUSD {
		return r.transferFailed(fmt.Sprintf(
			"Insufficient cost budget: agent %q has %.4f remaining, requested %.4f",
			from, remaining, amountUSD))
	}

	sourceNewLimit := *sourceStatus.CostLimitUSD - amountUSD

	targetNewLimit := amountUSD
	if targetLimit := target.Status().CostLimitUSD; targetLimit != nil {
		targetNewLimit = *targetLimit + amountUSD
	}

	source.AdjustCostLimit(&sourceNewLimit)
	target.AdjustCostLimit(&targetNewLimit)

	cost := amountUSD
	r.appendTransferLocked(TransferRecord{
		ID:        uuid.NewString(),
		FromAgent: from,
		ToAgent:   to,
		CostUSD:   &cost,
		Timestamp: time.Now(),
		Success:   true,
	})

	r.logger.Info("cost budget transferred",
		"from", from,
		"to", to,
		"cost_usd", amountUSD,
		"source_new_limit", sourceNewLimit,
		"target_new_limit", targetNewLimit,
	)

	return TransferResult{
		Success:            true,
		CostTransferred:    amountUSD,
		SourceNewCostLimit: sourceNewLimit,
		TargetNewCostLimit: targetNewLimit,
	}
}

// TransferHistory returns the successful transfers in completion order.
func (r *Registry) TransferHistory() []TransferRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]TransferRecord(nil), r.transfers...)
}

// ClearTransferHistory drops the in-memory transfer history.
// The durable archive, when configured, is unaffected.
func (r *Registry) ClearTransferHistory() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers = nil
}

// appendTransferLocked records a successful transfer in the in-memory
// history and, when configured, the durable archive and metrics.
// Caller must hold the registry write lock.
func (r *Registry) appendTransferLocked(rec TransferRecord) {
	r.transfers = append(r.transfers, rec)

	if r.metrics != nil {
		r.metrics.RecordTransfer(true)
	}

	if r.archive != nil {
		err := r.archive.Append(history.Record{
			ID:        rec.ID,
			FromAgent: rec.FromAgent,
			ToAgent:   rec.ToAgent,
			Tokens:    rec.Tokens,
			CostUSD:   rec.CostUSD,
			Timestamp: rec.Timestamp,
		})
		if err != nil {
			r.logger.Error("failed to archive transfer",
				"transfer_id", rec.ID,
				"error", err,
			)
		}
	}
}

// transferFailed builds the failure result and counts it in metrics.
// Failed attempts are reported to the caller but never recorded in history.
func (r *Registry) transferFailed(reason string) TransferResult {
	if r.metrics != nil {
		r.metrics.RecordTransfer(false)
	}
	return TransferResult{Success: false, Error: reason}
}
