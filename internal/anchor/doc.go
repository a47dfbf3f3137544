// Package anchor re-locates annotated spans of text in a changing document.
//
// The package is pure: it never touches the host document, only the
// TextIndex projected from it.
//
// # Pipeline
//
//  1. BuildIndex flattens the document's leaves (trimmed) into one text stream
//  2. ToOffset / ToCoordinate convert between text offsets and leaf coordinates
//  3. Extract records a Selector {exact, prefix, suffix} for a span
//  4. ResolveAll finds every occurrence of Selector.Exact in a (possibly new)
//     index and ranks them by context edit distance
//
// The index is always rebuilt from scratch. Documents are small relative to
// the rate of change notifications, so a full rebuild is cheap and keeps
// resolution free of incremental-patching bugs.
package anchor
