package anchor

import (
	"fmt"
	"sort"

	"github.com/roach88/reanchor/internal/ir"
)

// ToOffset converts a leaf coordinate to an offset in idx.Text.
//
// The coordinate's local offset is relative to the raw leaf text; the
// trimmed leading whitespace is subtracted and the result clamped to the
// leaf's trimmed extent.
func ToOffset(idx *ir.TextIndex, c ir.Coordinate) (int, error) {
	for _, e := range idx.Entries {
		if e.Leaf != c.Leaf {
			continue
		}
		local := c.Offset - e.Trim
		if local < 0 {
			local = 0
		}
		if local > e.Len {
			local = e.Len
		}
		return e.Start + local, nil
	}
	return 0, fmt.Errorf("to offset: %w", ErrLeafNotIndexed)
}

// ToCoordinate converts an offset in idx.Text to a leaf coordinate.
//
// For BoundaryStart the entry is the last one starting at or before offset.
// For BoundaryEnd it is the last one starting strictly before offset, so an
// end landing exactly on a leaf boundary stays attached to the earlier leaf.
func ToCoordinate(idx *ir.TextIndex, offset int, boundary ir.Boundary) (ir.Coordinate, error) {
	if offset < 0 || offset > len(idx.Text) {
		return ir.Coordinate{}, fmt.Errorf("to coordinate: offset %d outside [0,%d]: %w", offset, len(idx.Text), ErrOffsetOutOfRange)
	}

	// First entry that does NOT qualify; the one before it is the answer.
	n := sort.Search(len(idx.Entries), func(i int) bool {
		start := idx.Entries[i].Start
		if boundary == ir.BoundaryEnd {
			return start >= offset
		}
		return start > offset
	})
	if n == 0 {
		return ir.Coordinate{}, fmt.Errorf("to coordinate: no %s entry for offset %d: %w", boundary, offset, ErrOffsetOutOfRange)
	}

	e := idx.Entries[n-1]
	local := offset - e.Start
	if local > e.Len {
		return ir.Coordinate{}, fmt.Errorf("to coordinate: offset %d past leaf end %d: %w", offset, e.End(), ErrOffsetOutOfRange)
	}
	return ir.Coordinate{Leaf: e.Leaf, Offset: e.Trim + local}, nil
}

// ToSpan converts a pair of text offsets into a span.
func ToSpan(idx *ir.TextIndex, start, end int) (ir.Span, error) {
	if start > end {
		return ir.Span{}, fmt.Errorf("to span [%d,%d]: %w", start, end, ErrInvertedSpan)
	}
	s, err := ToCoordinate(idx, start, ir.BoundaryStart)
	if err != nil {
		return ir.Span{}, err
	}
	e, err := ToCoordinate(idx, end, ir.BoundaryEnd)
	if err != nil {
		return ir.Span{}, err
	}
	return ir.Span{Start: s, End: e}, nil
}

// SpanOffsets converts a span back into text offsets.
func SpanOffsets(idx *ir.TextIndex, span ir.Span) (start, end int, err error) {
	start, err = ToOffset(idx, span.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err = ToOffset(idx, span.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
