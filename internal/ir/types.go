package ir

import "fmt"

// Leaf is a text-bearing node owned by the host document.
//
// Implementations must be comparable with == (pointer types in practice):
// Span equality is defined by leaf identity.
type Leaf interface {
	Text() string
}

// IndexEntry records where one leaf's trimmed text begins in TextIndex.Text.
type IndexEntry struct {
	// Start is the byte offset of the leaf's trimmed text in TextIndex.Text.
	Start int

	// Leaf is the indexed leaf.
	Leaf Leaf

	// Trim is the number of leading whitespace bytes removed from Leaf.Text().
	Trim int

	// Len is the byte length of the trimmed text.
	Len int
}

// End returns the offset one past the entry's trimmed text.
func (e IndexEntry) End() int {
	return e.Start + e.Len
}

// TextIndex is the flattened text projection of a document.
//
// INVARIANTS:
//   - Entries are strictly increasing by Start, the first Start is 0
//   - Concatenating each entry's trimmed leaf text reproduces Text
type TextIndex struct {
	Text    string
	Entries []IndexEntry
}

// Len returns the length of the flattened text in bytes.
func (idx *TextIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Text)
}

// Boundary selects how an offset on a leaf boundary is attributed.
type Boundary int

const (
	// BoundaryStart binds a boundary offset to the following leaf.
	BoundaryStart Boundary = iota
	// BoundaryEnd binds a boundary offset to the preceding leaf.
	BoundaryEnd
)

// String implements fmt.Stringer.
func (b Boundary) String() string {
	switch b {
	case BoundaryStart:
		return "start"
	case BoundaryEnd:
		return "end"
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

// Coordinate addresses a position inside a leaf.
// Offset is a byte offset into Leaf.Text(), 0 <= Offset <= len(Leaf.Text()).
type Coordinate struct {
	Leaf   Leaf
	Offset int
}

// Equal reports whether both coordinates reference the same leaf and offset.
func (c Coordinate) Equal(other Coordinate) bool {
	return c.Leaf == other.Leaf && c.Offset == other.Offset
}

// Span is a half-open range between two coordinates.
type Span struct {
	Start Coordinate
	End   Coordinate
}

// Equal reports structural equality: both endpoints reference the same
// leaves at the same local offsets. Two spans covering identical text in
// different leaves are not equal.
func (s Span) Equal(other Span) bool {
	return s.Start.Equal(other.Start) && s.End.Equal(other.End)
}

// Match is a candidate resolution of a Selector.
type Match struct {
	// Span is the matched range in leaf coordinates.
	Span Span

	// Start and End are the matched text offsets in the TextIndex the
	// match was resolved against.
	Start int
	End   int

	// Distance is the combined edit distance of the actual context
	// against the recorded prefix and suffix.
	Distance int
}
