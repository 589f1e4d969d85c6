// Package persist provides snapshot persistence for budget accounts.
//
// # Overview
//
// Each budget account can persist its accounting state (counters, limits,
// triggered warnings, override flag, warning history) to durable storage so
// that a pipeline restarted mid-session resumes with exactly the pre-crash
// state. One snapshot is stored per session id.
//
// # Backends
//
// Three backends implement the Store interface:
//
//   - FileStore: one JSON file per session (budget-<sessionID>.json).
//     This is the default backend.
//   - SQLiteStore: a single SQLite database with one row per session,
//     using WAL mode and prepared statements.
//   - MemoryStore: process-local storage for tests and ephemeral runs.
//
// # Failure Model
//
// Persistence is best-effort by design: accounting must keep functioning
// even if durability is temporarily unavailable. Save failures are reported
// to the caller (and logged) but never abort the in-memory mutation that
// preceded them. Load treats missing or malformed snapshots as "no prior
// state" rather than a fatal error.
package persist
