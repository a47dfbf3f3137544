package anchor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reanchor/internal/ir"
)

func TestToOffset(t *testing.T) {
	ls := leaves("  Hello ", "world")
	idx := BuildIndex(ls)

	tests := []struct {
		name   string
		coord  ir.Coordinate
		offset int
	}{
		{"start of trimmed text", ir.Coordinate{Leaf: ls[0], Offset: 2}, 0},
		{"inside first leaf", ir.Coordinate{Leaf: ls[0], Offset: 4}, 2},
		{"leading whitespace clamps", ir.Coordinate{Leaf: ls[0], Offset: 0}, 0},
		{"trailing whitespace clamps", ir.Coordinate{Leaf: ls[0], Offset: 8}, 5},
		{"second leaf", ir.Coordinate{Leaf: ls[1], Offset: 3}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToOffset(idx, tt.coord)
			require.NoError(t, err)
			assert.Equal(t, tt.offset, got)
		})
	}
}

func TestToOffset_LeafNotIndexed(t *testing.T) {
	idx := BuildIndex(leaves("Hello"))

	_, err := ToOffset(idx, ir.Coordinate{Leaf: &leaf{text: "Hello"}, Offset: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLeafNotIndexed))
	assert.True(t, IsIndexError(err))
}

func TestToCoordinate_Boundaries(t *testing.T) {
	ls := leaves("Hello", "  world")
	idx := BuildIndex(ls)

	// Offset 5 is the boundary between the two leaves.
	c, err := ToCoordinate(idx, 5, ir.BoundaryStart)
	require.NoError(t, err)
	assert.Equal(t, ir.Coordinate{Leaf: ls[1], Offset: 2}, c, "start binds to the following leaf")

	c, err = ToCoordinate(idx, 5, ir.BoundaryEnd)
	require.NoError(t, err)
	assert.Equal(t, ir.Coordinate{Leaf: ls[0], Offset: 5}, c, "end binds to the preceding leaf")

	c, err = ToCoordinate(idx, 10, ir.BoundaryStart)
	require.NoError(t, err)
	assert.Equal(t, ir.Coordinate{Leaf: ls[1], Offset: 7}, c, "end of text stays in the last leaf")
}

func TestToCoordinate_OutOfRange(t *testing.T) {
	idx := BuildIndex(leaves("Hello", "world"))

	tests := []struct {
		name     string
		offset   int
		boundary ir.Boundary
	}{
		{"negative", -1, ir.BoundaryStart},
		{"past end", 11, ir.BoundaryStart},
		{"end boundary at zero", 0, ir.BoundaryEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToCoordinate(idx, tt.offset, tt.boundary)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOffsetOutOfRange))
		})
	}
}

func TestToCoordinate_EmptyIndex(t *testing.T) {
	_, err := ToCoordinate(BuildIndex(nil), 0, ir.BoundaryStart)
	assert.True(t, errors.Is(err, ErrOffsetOutOfRange))
}

func TestToSpan_RoundTrip(t *testing.T) {
	ls := leaves("The quick", "brown fox")
	idx := BuildIndex(ls)

	span, err := ToSpan(idx, 4, 14)
	require.NoError(t, err)
	assert.Equal(t, ir.Coordinate{Leaf: ls[0], Offset: 4}, span.Start)
	assert.Equal(t, ir.Coordinate{Leaf: ls[1], Offset: 5}, span.End)

	start, end, err := SpanOffsets(idx, span)
	require.NoError(t, err)
	assert.Equal(t, 4, start)
	assert.Equal(t, 14, end)
}

func TestToSpan_Inverted(t *testing.T) {
	idx := BuildIndex(leaves("Hello"))
	_, err := ToSpan(idx, 3, 1)
	assert.True(t, errors.Is(err, ErrInvertedSpan))
}
