package anchor

import (
	"fmt"

	"github.com/roach88/reanchor/internal/ir"
)

// Extract records a portable selector for span.
//
// Exact is the indexed text covered by the span. Prefix and Suffix hold up
// to ir.ContextLength runes of surrounding text; at the document edges they
// are shorter, and empty when there is no surrounding text at all.
func Extract(idx *ir.TextIndex, span ir.Span) (ir.Selector, error) {
	start, end, err := SpanOffsets(idx, span)
	if err != nil {
		return ir.Selector{}, fmt.Errorf("extract: %w", err)
	}
	return ExtractOffsets(idx, start, end)
}

// ExtractOffsets records a selector for the text range [start,end).
func ExtractOffsets(idx *ir.TextIndex, start, end int) (ir.Selector, error) {
	if start > end {
		return ir.Selector{}, fmt.Errorf("extract [%d,%d]: %w", start, end, ErrInvertedSpan)
	}
	if start < 0 || end > len(idx.Text) {
		return ir.Selector{}, fmt.Errorf("extract [%d,%d] of %d: %w", start, end, len(idx.Text), ErrOffsetOutOfRange)
	}

	text := idx.Text
	sel := ir.Selector{
		Exact:  text[start:end],
		Prefix: text[runeWindowBefore(text, start, ir.ContextLength):start],
		Suffix: text[end:runeWindowAfter(text, end, ir.ContextLength)],
	}
	if err := sel.Validate(); err != nil {
		return ir.Selector{}, fmt.Errorf("extract [%d,%d]: %w", start, end, err)
	}
	return sel, nil
}
