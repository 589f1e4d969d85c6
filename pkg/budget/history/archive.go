package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Record is one archived transfer.
type Record struct {
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
}

// Archive stores transfer records in a SQLite database.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
	mu     sync.Mutex

	closeOnce sync.Once

	insertStmt *sql.Stmt
	listStmt   *sql.Stmt
}

// Open opens (or creates) the transfer archive at path.
func Open(path string) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("archive path cannot be empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	a := &Archive{
		db:     db,
		logger: slog.Default().With("component", "budget.history"),
	}

	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	a.logger.Info("transfer archive opened", "path", path)

	return a, nil
}

// initialize sets up the schema and prepares statements.
func (a *Archive) initialize() error {
	if _, err := a.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		from_agent TEXT NOT NULL,
		to_agent TEXT NOT NULL,
		tokens INTEGER,
		cost_usd REAL,
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_timestamp ON transfers(timestamp);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var err error
	a.insertStmt, err = a.db.Prepare(`
		INSERT INTO transfers (id, from_agent, to_agent, tokens, cost_usd, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	a.listStmt, err = a.db.Prepare(`
		SELECT id, from_agent, to_agent, tokens, cost_usd, timestamp
		FROM transfers ORDER BY timestamp, id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// Append stores one transfer record.
func (a *Archive) Append(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}

	var tokens sql.NullInt64
	if rec.Tokens != nil {
		tokens = sql.NullInt64{Int64: *rec.Tokens, Valid: true}
	}
	var cost sql.NullFloat64
	if rec.CostUSD != nil {
		cost = sql.NullFloat64{Float64: *rec.CostUSD, Valid: true}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.insertStmt.Exec(rec.ID, rec.FromAgent, rec.ToAgent, tokens, cost, rec.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append transfer: %w", err)
	}
	return nil
}

// List returns all archived transfers in chronological order.
func (a *Archive) List() ([]Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.listStmt.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec    Record
			tokens sql.NullInt64
			cost   sql.NullFloat64
			ts     int64
		)
		if err := rows.Scan(&rec.ID, &rec.FromAgent, &rec.ToAgent, &tokens, &cost, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if tokens.Valid {
			v := tokens.Int64
			rec.Tokens = &v
		}
		if cost.Valid {
			v := cost.Float64
			rec.CostUSD = &v
		}
		rec.Timestamp = time.Unix(0, ts)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Close releases the underlying database.
// Close is idempotent and safe to call multiple times.
func (a *Archive) Close() error {
	var closeErr error

	a.closeOnce.Do(func() {
		if a.insertStmt != nil {
			a.insertStmt.Close()
		}
		if a.listStmt != nil {
			a.listStmt.Close()
		}
		if a.db != nil {
			closeErr = a.db.Close()
		}
	})

	return closeErr
}
