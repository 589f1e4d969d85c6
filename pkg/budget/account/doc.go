// Package account implements the per-agent budget accounting primitive.
//
// # Overview
//
// An Account tracks token and monetary consumption for one agent and
// enforces optional hard limits on both dimensions:
//
//   - Counters are monotonically non-decreasing except on explicit Reset.
//   - Warning thresholds (default 50/75/90 percent) fire at most once per
//     (threshold, dimension) pair until Reset re-arms them.
//   - An absent limit means the dimension is never checked.
//   - An active override lets recording proceed past a hard limit.
//
// # Atomicity
//
// Every RecordUsage call applies its counter mutation, threshold
// evaluation, and optional persistence write as one atomic unit under the
// account mutex. Two concurrent calls can never interleave such that a
// threshold is skipped or double-fired, and no reader observes a
// partially-mutated account.
//
// # Persistence
//
// When constructed with a persist.Store and a session id, the account
// restores its pre-crash state before anything else touches it, and writes
// a snapshot through the store on every mutation. Durability is
// at-least-once: a failed write is logged and the in-memory state stays
// authoritative.
package account
