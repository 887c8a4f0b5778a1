// Package store provides SQLite-backed history of finished audits.
//
// Only final results are stored: one audit_runs row per audit and one
// divergences row per divergent pair, with both records kept in their
// canonical JSON text so a report can be re-rendered later. Tracker state
// is never persisted mid-audit.
//
// # Ordering
//
//   - ListRuns: ORDER BY started_at DESC, id ASC
//   - ReadRun divergences: ORDER BY ordinal ASC (report order at write time)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
