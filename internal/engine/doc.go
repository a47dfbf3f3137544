// Package engine implements the reconciliation engine that keeps injected
// artifacts attached to their annotated spans while a document changes.
//
// ARCHITECTURE:
//
// One Reconciler per document. It owns the current TextIndex, the registered
// Configs (selector + inject/cleanup callbacks) and, per Config, the live
// Artifacts. There are no package-level registries.
//
// Two operations, deliberately separate:
//
//  1. SetConfigs replaces the Config set. Artifacts of removed Configs are
//     released immediately; artifacts of retained Configs carry over
//     unvalidated.
//  2. Reconcile runs one pass: rebuild the index, resolve every Config,
//     keep the minimum-distance tie set (minus exclusion zones), diff it
//     against the live artifacts by structural Span equality, and only
//     inject/release where spans changed.
//
// Single-Writer Event Loop:
// Hosts that deliver change notifications from other goroutines use
// Attach + Run. Notifications become ChangeMsg values on a FIFO queue and
// Run processes every Message on one goroutine. Hosts that are already
// single-threaded may call SetConfigs and Reconcile directly instead.
//
// CRITICAL PATTERNS:
//
// Feedback suppression:
// inject/release mutate the document, which would re-trigger change
// notifications and loop forever. Every pass, and every release outside a
// pass, is bracketed by ChangeSource.Pause/Resume. A Reconcile or SetConfigs
// call made from inside a pass is rejected with ErrReentrantPass.
//
// Failure isolation:
// An index error for one Config skips that Config for the pass and leaves
// its artifacts untouched. A failing inject skips that Span only; it is
// retried on the next pass. Nothing aborts the pass as a whole.
package engine
