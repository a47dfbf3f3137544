package anchor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/reanchor/internal/ir"
)

// BuildIndex projects leaves, given in document order, into a TextIndex.
//
// Each leaf contributes its text with leading and trailing whitespace
// removed, so formatting whitespace between elements does not perturb
// offsets. Leaves that are empty after trimming are not indexed.
//
// Runs in time linear in the number of leaves and the total text length.
func BuildIndex(leaves []ir.Leaf) *ir.TextIndex {
	var b strings.Builder
	entries := make([]ir.IndexEntry, 0, len(leaves))

	for _, leaf := range leaves {
		if leaf == nil {
			continue
		}
		raw := leaf.Text()
		trim, trimmed := trimLeaf(raw)
		if trimmed == "" {
			continue
		}
		entries = append(entries, ir.IndexEntry{
			Start: b.Len(),
			Leaf:  leaf,
			Trim:  trim,
			Len:   len(trimmed),
		})
		b.WriteString(trimmed)
	}

	return &ir.TextIndex{Text: b.String(), Entries: entries}
}

// trimLeaf returns the number of leading whitespace bytes and the trimmed text.
func trimLeaf(raw string) (int, string) {
	left := strings.TrimLeftFunc(raw, unicode.IsSpace)
	return len(raw) - len(left), strings.TrimRightFunc(left, unicode.IsSpace)
}

// runeWindowBefore returns the start of the window of at most n runes
// ending at offset.
func runeWindowBefore(text string, offset, n int) int {
	start := offset
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	return start
}

// runeWindowAfter returns the end of the window of at most n runes
// starting at offset.
func runeWindowAfter(text string, offset, n int) int {
	end := offset
	for i := 0; i < n && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return end
}
