package anchor

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/roach88/reanchor/internal/ir"
)

// ResolveAll finds every occurrence of sel.Exact in idx and ranks them.
//
// Each occurrence is scored by the edit distance between the text around it
// and the recorded prefix/suffix; absent context contributes nothing. The
// result is ordered by ascending distance; equal distances keep document
// order. An empty result means the selector is not currently anchorable and
// is not an error.
func ResolveAll(idx *ir.TextIndex, sel ir.Selector) ([]ir.Match, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	text := idx.Text
	matches := []ir.Match{}
	for from := 0; from <= len(text)-len(sel.Exact); {
		i := strings.Index(text[from:], sel.Exact)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(sel.Exact)

		span, err := ToSpan(idx, start, end)
		if err != nil {
			return nil, fmt.Errorf("resolve occurrence at %d: %w", start, err)
		}
		matches = append(matches, ir.Match{
			Span:     span,
			Start:    start,
			End:      end,
			Distance: contextDistance(text, start, end, sel),
		})

		// Advance one rune so overlapping occurrences are found.
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches, nil
}

// contextDistance scores one occurrence against the recorded context.
func contextDistance(text string, start, end int, sel ir.Selector) int {
	prefix, suffix := contextWindows(text, start, end, sel)
	return EditDistance(prefix, sel.Prefix) + EditDistance(suffix, sel.Suffix)
}

// contextWindows returns the text around [start,end) that is compared with
// the recorded context. A recorded context is compared with a window of its
// own length, capped at ir.ContextLength runes. An absent context is compared
// with a full ir.ContextLength window, so every rune of text on that side
// counts against the match.
func contextWindows(text string, start, end int, sel ir.Selector) (prefix, suffix string) {
	np := windowLength(sel.Prefix)
	ns := windowLength(sel.Suffix)
	return text[runeWindowBefore(text, start, np):start], text[end:runeWindowAfter(text, end, ns)]
}

func windowLength(recorded string) int {
	if recorded == "" {
		return ir.ContextLength
	}
	return min(utf8.RuneCountInString(recorded), ir.ContextLength)
}

// Context returns the actual text compared with sel's prefix and suffix
// for match m.
func Context(idx *ir.TextIndex, sel ir.Selector, m ir.Match) (prefix, suffix string) {
	return contextWindows(idx.Text, m.Start, m.End, sel)
}

// MinDistance returns the tie set: every match whose distance equals the
// smallest distance in matches. Ties use exact integer equality.
func MinDistance(matches []ir.Match) []ir.Match {
	if len(matches) == 0 {
		return nil
	}
	best := matches[0].Distance
	for _, m := range matches[1:] {
		if m.Distance < best {
			best = m.Distance
		}
	}
	ties := make([]ir.Match, 0, 1)
	for _, m := range matches {
		if m.Distance == best {
			ties = append(ties, m)
		}
	}
	return ties
}
