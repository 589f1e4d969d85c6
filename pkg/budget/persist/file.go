package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	snapshotPrefix = "budget-"
	snapshotSuffix = ".json"
)

// FileStore implements Store using one JSON file per session.
// Snapshots are written to <dir>/budget-<sessionID>.json. Writes go through
// a temporary file and rename so a crash mid-write never leaves a truncated
// snapshot behind.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates a file-backed store rooted at dir.
// The directory is created if it does not exist.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("persistence directory cannot be empty")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create persistence directory %q: %w", dir, err)
	}

	return &FileStore{
		dir:    dir,
		logger: slog.Default().With("component", "budget.persist.file"),
	}, nil
}

// Save writes the snapshot to its session file.
func (s *FileStore) Save(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	if snap.SessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(snap.SessionID)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

// Load reads the snapshot for a session id.
// A missing file means no prior state. A file that cannot be parsed is
// treated the same way: the session starts fresh and the problem is logged.
func (s *FileStore) Load(sessionID string) (*Snapshot, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("discarding malformed snapshot",
			"session_id", sessionID,
			"error", err,
		)
		return nil, nil
	}

	return &snap, nil
}

// Delete removes the snapshot file for a session id.
func (s *FileStore) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Sessions returns the session ids found in the store directory.
func (s *FileStore) Sessions() ([]string, error) {
	return ListSessions(s.dir)
}

// Close releases resources held by the store. FileStore holds none.
func (s *FileStore) Close() error {
	return nil
}

// path returns the snapshot file path for a session id.
func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, snapshotPrefix+sessionID+snapshotSuffix)
}

// ListSessions returns the session ids derived from snapshot filenames in
// dir. A non-existent directory yields an empty list, not an error: a fresh
// deployment simply has no sessions yet.
func ListSessions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read persistence directory %q: %w", dir, err)
	}

	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix)
		if id != "" {
			sessions = append(sessions, id)
		}
	}

	return sessions, nil
}
