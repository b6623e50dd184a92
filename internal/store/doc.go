// Package store keeps a SQLite history of harness reports.
//
// Every report becomes one row in runs and one row per outcome in
// outcomes. Runs are ordered by seq, a counter assigned at write time, so
// listings do not depend on wall-clock time. Unknown timings are stored as
// NULL.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The schema version lives in PRAGMA user_version and is migrated forward
// on Open.
package store
