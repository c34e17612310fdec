// Package store provides the SQLite-backed local cache for campus events.
//
// The store holds:
//   - Events: the cached event table, replaced wholesale on every sync
//   - Sync Runs: one bookkeeping row per successful sync cycle
//   - Credentials: the signed-in principal, at most one row
//
// # Replace Semantics
//
// ReplaceEvents clears the event table and inserts the new snapshot inside a
// single transaction. A reader never observes the empty intermediate state,
// and a failed replace leaves the previous contents in place. Surrogate ids
// come from AUTOINCREMENT, so every replace assigns fresh ids.
//
// # Reactive Reads
//
// Watch delivers the current table contents immediately, then again after
// every committed replace. Delivery is latest-wins: a slow subscriber skips
// intermediate snapshots. Only writes made through this Store are observed.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
