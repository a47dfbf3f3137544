package anchor

import "errors"

// Index invariant errors. These indicate that a coordinate or offset does
// not belong to the index it was converted against.
var (
	// ErrLeafNotIndexed indicates a coordinate references a leaf absent from the index.
	ErrLeafNotIndexed = errors.New("leaf not indexed")

	// ErrOffsetOutOfRange indicates no index entry can hold the offset.
	ErrOffsetOutOfRange = errors.New("offset out of range")
)

// Caller contract errors.
var (
	// ErrInvertedSpan indicates a span whose start lies after its end.
	ErrInvertedSpan = errors.New("span start after end")
)

// IsIndexError reports whether err is an index invariant violation.
func IsIndexError(err error) bool {
	return errors.Is(err, ErrLeafNotIndexed) || errors.Is(err, ErrOffsetOutOfRange)
}
