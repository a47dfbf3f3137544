// Package ir provides the foundational types for re-anchoring annotations.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// anchoring vocabulary (Leaf, TextIndex, Coordinate, Span, Selector, Match)
// the lowest layer with no circular dependencies.
//
// Key design constraints:
//   - Offsets into TextIndex.Text are byte offsets into UTF-8 text
//   - Coordinates are relative to the raw Leaf.Text(), not the trimmed text
//   - Spans compare structurally (same leaf, same local offset), never textually
//   - Absent selector context is the empty string
package ir
