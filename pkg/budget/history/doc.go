// Package history provides a durable audit archive for budget transfers.
//
// The in-memory transfer history owned by the registry is bounded to the
// process lifetime; the Archive writes every successful transfer to a
// SQLite database so reallocations remain auditable across restarts.
// Archive writes are best-effort: a failed append is logged by the caller
// and never blocks the transfer itself.
package history
