// Package harness runs reconciliation scenarios against the real engine.
//
// A scenario is a YAML file that describes a document, the annotations
// anchored to it, and a sequence of document edits. The harness drives the
// engine's Run loop exactly as the watch command does and records every
// pass in a trace that can be asserted on or compared to a golden file.
//
// # Scenario Format
//
//	name: edit_inside_anchor
//	description: "An edit inside the anchored leaf moves the artifact"
//	document: |
//	  <html><body><p>The quick brown fox</p></body></html>
//	exclude:
//	  - //textarea
//	configs:
//	  - id: quick
//	    fragment: "e=quick%20brown&p=The%20"
//	  - id: lazy
//	    exact: lazy
//	steps:
//	  - op: reconcile
//	    expect: { injected: 1 }
//	  - op: set_text
//	    leaf: 0
//	    text: "Well, the quick brown fox"
//	assertions:
//	  - type: pass_count
//	    count: 2
//	  - type: anchored
//	    config: quick
//	    offsets: [10]
//
// # Step Operations
//
//   - reconcile: requests a pass (reason manual)
//   - set_text: replaces the text of leaf N
//   - insert_before: inserts a text node before leaf N
//   - replace: swaps in a new document, as a page re-render would
//   - configs: registers only the listed config ids
//
// Leaves are numbered in document order at the time the step runs.
//
// # Assertion Types
//
//   - pass: the pass with the given seq reported the expected counts
//   - pass_count: exactly N passes ran
//   - anchored: a config's artifacts start at exactly these offsets
//   - tagged: a config's id tags exactly these elements
//   - final_state: a row of the audit database holds the expected values
//
// # Deterministic Testing
//
// Each scenario runs with a fresh in-memory store, a logical pass clock
// starting at 0, annotation ids taken from the scenario config ids, and a
// watcher without debounce or poll. After every step the harness waits for
// the Run loop to drain, so every edit produces exactly one pass and traces
// are identical across runs.
package harness
