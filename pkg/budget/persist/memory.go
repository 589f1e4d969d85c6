package persist

import (
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory storage.
// All data is lost when the process exits. Intended for tests and for
// deployments that explicitly opt out of durability.
type MemoryStore struct {
	snapshots map[string]*Snapshot
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]*Snapshot),
	}
}

// Save stores a copy of the snapshot keyed by session id.
func (m *MemoryStore) Save(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snap.SessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	cp := *snap
	cp.TriggeredWarnings = append([]string(nil), snap.TriggeredWarnings...)
	cp.WarningHistory = append([]WarningRecord(nil), snap.WarningHistory...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snap.SessionID] = &cp

	return nil
}

// Load returns a copy of the stored snapshot, or nil if absent.
func (m *MemoryStore) Load(sessionID string) (*Snapshot, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[sessionID]
	if !ok {
		return nil, nil
	}

	cp := *snap
	cp.TriggeredWarnings = append([]string(nil), snap.TriggeredWarnings...)
	cp.WarningHistory = append([]WarningRecord(nil), snap.WarningHistory...)
	return &cp, nil
}

// Delete removes the snapshot for a session id.
func (m *MemoryStore) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, sessionID)
	return nil
}

// Sessions returns the ids of all stored sessions.
func (m *MemoryStore) Sessions() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]string, 0, len(m.snapshots))
	for id := range m.snapshots {
		sessions = append(sessions, id)
	}
	return sessions, nil
}

// Close releases resources held by the store. MemoryStore holds none.
func (m *MemoryStore) Close() error {
	return nil
}

// Size returns the number of stored snapshots.
// This is useful for monitoring and testing.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}
