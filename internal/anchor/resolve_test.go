package anchor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reanchor/internal/ir"
)

func TestResolveAll_Example(t *testing.T) {
	idx := BuildIndex(leaves("The quick brown fox jumps over the lazy dog."))
	sel := ir.Selector{Exact: "quick brown", Prefix: "The ", Suffix: " fox"}

	matches, err := ResolveAll(idx, sel)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 4, matches[0].Start)
	assert.Equal(t, 15, matches[0].End)
	assert.Equal(t, 0, matches[0].Distance)
}

func TestResolveAll_UnrelatedInsertionStillMatches(t *testing.T) {
	before := leaves("Intro", "The quick brown fox jumps over the lazy dog.")
	sel := ir.Selector{Exact: "quick brown", Prefix: "The ", Suffix: " fox"}

	after := append(leaves("Breaking news."), before...)
	matches, err := ResolveAll(BuildIndex(after), sel)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Distance)
	assert.Equal(t, ir.Coordinate{Leaf: before[1], Offset: 4}, matches[0].Span.Start)
}

func TestResolveAll_RoundTrip(t *testing.T) {
	ls := leaves("Alpha beta gamma", "delta  ", "  epsilon beta zeta", "beta")
	idx := BuildIndex(ls)

	for start := 0; start < len(idx.Text); start++ {
		for end := start + 1; end <= len(idx.Text) && end <= start+8; end++ {
			span, err := ToSpan(idx, start, end)
			require.NoError(t, err)
			sel, err := Extract(idx, span)
			require.NoError(t, err)

			matches, err := ResolveAll(idx, sel)
			require.NoError(t, err)

			found := false
			for _, m := range matches {
				if m.Distance == 0 && m.Span.Equal(span) {
					found = true
				}
			}
			assert.True(t, found, "span [%d,%d) %q did not round trip", start, end, sel.Exact)
		}
	}
}

func TestResolveAll_RankedByDistance(t *testing.T) {
	idx := BuildIndex(leaves("red apple, green apple, red apple pie"))
	sel := ir.Selector{Exact: "apple", Prefix: "red ", Suffix: " pie"}

	matches, err := ResolveAll(idx, sel)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, 28, matches[0].Start, "red apple pie is the exact context")
	assert.Equal(t, 0, matches[0].Distance)
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i-1].Distance, matches[i].Distance)
	}
}

func TestResolveAll_TieCompleteness(t *testing.T) {
	idx := BuildIndex(leaves("x term y. x term y."))
	sel := ir.Selector{Exact: "term", Prefix: "x ", Suffix: " y"}

	matches, err := ResolveAll(idx, sel)
	require.NoError(t, err)

	ties := MinDistance(matches)
	require.Len(t, ties, 2)
	assert.Equal(t, 2, ties[0].Start)
	assert.Equal(t, 12, ties[1].Start, "equal distances keep document order")
}

func TestResolveAll_Overlapping(t *testing.T) {
	idx := BuildIndex(leaves("aaaa"))

	matches, err := ResolveAll(idx, ir.Selector{Exact: "aa"})
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestResolveAll_NoMatchIsEmpty(t *testing.T) {
	idx := BuildIndex(leaves("The quick brown fox"))

	matches, err := ResolveAll(idx, ir.Selector{Exact: "zebra"})
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestResolveAll_RejectsMalformed(t *testing.T) {
	_, err := ResolveAll(BuildIndex(leaves("x")), ir.Selector{})
	assert.True(t, errors.Is(err, ir.ErrMalformedSelector))
}

func TestResolveAll_CrossesLeaves(t *testing.T) {
	ls := leaves("The quick", "brown fox")
	idx := BuildIndex(ls)

	matches, err := ResolveAll(idx, ir.Selector{Exact: "quickbrown"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ls[0], matches[0].Span.Start.Leaf)
	assert.Equal(t, ls[1], matches[0].Span.End.Leaf)
}

func TestContext_UsesRecordedLength(t *testing.T) {
	idx := BuildIndex(leaves("The quick brown fox jumps"))
	sel := ir.Selector{Exact: "brown", Prefix: "quick ", Suffix: " f"}

	matches, err := ResolveAll(idx, sel)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	prefix, suffix := Context(idx, sel, matches[0])
	assert.Equal(t, "quick ", prefix)
	assert.Equal(t, " f", suffix)
}

func TestMinDistance_Empty(t *testing.T) {
	assert.Nil(t, MinDistance(nil))
}

func TestResolveAll_AbsentContextCountsFullWindow(t *testing.T) {
	idx := BuildIndex(leaves("foo bar. some other text here, foo bar."))
	sel := ir.Selector{Exact: "foo", Suffix: " bar"}

	matches, err := ResolveAll(idx, sel)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	ties := MinDistance(matches)
	require.Len(t, ties, 1)
	assert.Equal(t, 0, ties[0].Start)
	assert.Equal(t, 0, ties[0].Distance)

	prefix, _ := Context(idx, sel, matches[1])
	assert.Equal(t, "foo bar. some other text here, ", prefix)
	assert.Equal(t, 31, matches[1].Distance)
}

func TestContext_AbsentContextUsesFullWindow(t *testing.T) {
	text := "0123456789012345678901234567890123456789 fox"
	idx := BuildIndex(leaves(text))
	sel := ir.Selector{Exact: "fox"}

	matches, err := ResolveAll(idx, sel)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	prefix, suffix := Context(idx, sel, matches[0])
	assert.Equal(t, text[len(text)-3-ir.ContextLength:len(text)-3], prefix)
	assert.Empty(t, suffix)
	assert.Equal(t, ir.ContextLength, matches[0].Distance)
}
