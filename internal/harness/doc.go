// Package harness runs YAML scenarios against an in-memory engine.
//
// A scenario is a sequence of commits followed by assertions on the
// resulting store. It documents an expected behavior as an executable
// contract and doubles as a golden trace test.
//
// # Scenario Format
//
//	name: resurrection
//	description: "Delete then re-insert keeps one history"
//	schema: parts.cue        # optional, relative to the scenario file
//	start_time: 1000         # optional, first commit timestamp
//	time_step: 10            # optional, timestamp increment
//	steps:
//	  - commit:
//	      committer: alice
//	      insert:
//	        - id: /x
//	          attributes: { A: B }
//	  - commit:
//	      update:
//	        - id: /x
//	          version: 0
//	          attributes: { A: C }
//	    expect_error: VERSION_CONFLICT
//	assertions:
//	  - type: object
//	    id: /x
//	    version: 1
//	    attributes: { A: B }
//
// # Assertion Types
//
//   - object: entry at the current time or at "at"; checks version,
//     deleted, attributes (subset) or missing
//   - history: number of history entries and which of them are tombstones
//   - log: number of commits touching id in [from, to]
//   - query: ids matched by a query string, optionally at a timestamp
//   - diff: difference count (and optionally changed keys) between two times
//   - commits_by_tag: number of commits carrying tag=value
//   - resurrected: the resurrected id set
//   - revision: the current revision
//   - verify: the rebuilt indexes match
//
// # Deterministic Testing
//
// Every scenario runs on a fresh engine with a stepped clock
// (testutil.SteppedClock) and sequential revisions
// (testutil.SequentialRevisions), so traces are identical across runs and
// can be compared against golden files.
package harness
