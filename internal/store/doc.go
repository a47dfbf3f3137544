// Package store provides SQLite-backed durable storage for annotations and
// the reconciliation audit log.
//
// The store holds:
//   - Annotations: a Selector recorded against a document, with its
//     fragment wire form and a free-text note
//   - Passes: one audit record per reconciliation pass
//
// # Critical Patterns
//
// Logical time:
//   - Ordering uses seq INTEGER columns (annotation created_seq, pass seq),
//     never timestamps
//   - Pass seq values come from the engine clock; LastPassSeq lets a
//     restarted process resume numbering
//
// Content-addressed dedup:
//   - UNIQUE(document, selector_id) where selector_id = ir.SelectorID
//   - Annotating the same selector twice returns the existing annotation
//
// Deterministic query results:
//   - Every list query has a total ORDER BY ending in id/seq COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
