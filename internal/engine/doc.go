// Package engine implements the Engineering Database storage engine.
//
// The engine records every change to a set of loosely typed records as an
// immutable, timestamped commit and answers point-in-time reads, history,
// log, diff and predicate queries from indexes derived from the commit log.
//
// ARCHITECTURE:
//
// Single Writer, Lock-Free Readers:
// Commit() runs one critical section per call:
// 1. Validate the commit (shape, double-commit check, optional Validator)
// 2. Detect conflicts against the current index
// 3. Assign revision, parent revision and the next timestamp
// 4. Append to the CommitLog (SQLite, BadgerDB or memory)
// 5. Build the next immutable index snapshot and publish it atomically
//
// Readers load the published snapshot once per call and never block on a
// commit. A failed commit publishes nothing.
//
// Indexes:
// - current: id -> latest entry (tombstones included), sorted by id
// - history: id -> every entry, ascending by timestamp and version
// - commits: the log in append order, plus revision and fingerprint lookups
//
// CRITICAL PATTERNS:
//
// Log Is Truth:
// Indexes are never persisted. Open() replays the log; Verify() replays it
// again and compares.
//
// Strictly Increasing Timestamps:
// Clock.Next() returns max(now, last+1) in milliseconds. Snapshot reads at
// time t see exactly the commits with timestamp <= t.
package engine
