package persist

import "time"

// Snapshot is the persisted state of a single budget account session.
// The JSON field names form the on-disk snapshot format and must remain
// stable across releases.
type Snapshot struct {
	// SessionID identifies the session this snapshot belongs to.
	SessionID string `json:"sessionId"`

	// CurrentTokens is the accumulated token count at save time.
	CurrentTokens int64 `json:"currentTokens"`

	// CurrentCostUSD is the accumulated cost in USD at save time.
	CurrentCostUSD float64 `json:"currentCostUsd"`

	// TriggeredWarnings lists warning keys ("token:50", "cost:90") that
	// have already fired and must not fire again after a restore.
	TriggeredWarnings []string `json:"triggeredWarnings"`

	// OverrideActive records whether the hard-limit override was enabled.
	OverrideActive bool `json:"overrideActive"`

	// SavedAt is when this snapshot was written.
	SavedAt time.Time `json:"savedAt"`

	// WarningHistory is the append-only log of every warning ever fired.
	WarningHistory []WarningRecord `json:"warningHistory"`

	// TokenLimit is the token limit at save time. Nil means unlimited.
	TokenLimit *int64 `json:"tokenLimit,omitempty"`

	// CostLimitUSD is the cost limit at save time. Nil means unlimited.
	CostLimitUSD *float64 `json:"costLimitUsd,omitempty"`
}

// WarningRecord is one entry in a snapshot's warning history.
type WarningRecord struct {
	// Type is the limited dimension ("token" or "cost").
	Type string `json:"type"`

	// ThresholdPercent is the threshold that fired (50, 75, 90).
	ThresholdPercent int `json:"thresholdPercent"`

	// Severity is the warning severity ("info", "warning", "critical").
	Severity string `json:"severity"`

	// At is when the warning fired.
	At time.Time `json:"at"`
}

// Store defines the interface for snapshot persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists the snapshot for its session id, replacing any
	// previous snapshot. Returns error on failure.
	Save(snap *Snapshot) error

	// Load retrieves the snapshot for a session id.
	// Returns (nil, nil) if no usable snapshot exists: missing and
	// malformed snapshots both mean a fresh start, never a fatal error.
	Load(sessionID string) (*Snapshot, error)

	// Delete removes the snapshot for a session id.
	// No-op if the snapshot does not exist.
	Delete(sessionID string) error

	// Sessions returns the ids of all sessions with a stored snapshot.
	// Returns an empty slice when nothing has been persisted.
	Sessions() ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
