// Package store provides the SQLite-backed durable commit log for edb.
//
// The store is an append-only log with two tables:
//   - commits: one row per accepted commit, with provenance tags, the
//     assigned revision, parent revision, timestamp and content fingerprint
//   - entries: the inserts, updates and tombstones each commit wrote
//
// Nothing is ever updated or deleted. The engine rebuilds its current and
// history indexes from Load on open, so the log is the single source of
// truth.
//
// # Ordering
//
// All reads use ORDER BY seq ASC (commits) and position ASC (entries) so
// replay yields commits in append order with entries in submission order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Attributes are stored as key-sorted JSON (Attributes.MarshalJSON) so the
// same commit always produces identical rows. Strings keep their exact
// bytes; only fingerprints use the NFC-normalized canonical form.
package store
