package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reanchor/internal/ir"
)

func TestBuildIndex_TrimsAndConcatenates(t *testing.T) {
	ls := leaves("  Hello ", "\n\t", "world  ")
	idx := BuildIndex(ls)

	assert.Equal(t, "Helloworld", idx.Text)
	require.Len(t, idx.Entries, 2, "whitespace-only leaf is not indexed")

	assert.Equal(t, ir.IndexEntry{Start: 0, Leaf: ls[0], Trim: 2, Len: 5}, idx.Entries[0])
	assert.Equal(t, ir.IndexEntry{Start: 5, Leaf: ls[2], Trim: 0, Len: 5}, idx.Entries[1])
}

func TestBuildIndex_Empty(t *testing.T) {
	idx := BuildIndex(nil)
	assert.Equal(t, "", idx.Text)
	assert.Empty(t, idx.Entries)

	idx = BuildIndex(leaves("   ", ""))
	assert.Equal(t, "", idx.Text)
	assert.Empty(t, idx.Entries)
}

func TestBuildIndex_Invariants(t *testing.T) {
	ls := leaves("Alpha", " beta ", "gamma\n", "  ", "δέλτα")
	idx := BuildIndex(ls)

	require.NotEmpty(t, idx.Entries)
	assert.Equal(t, 0, idx.Entries[0].Start)

	rebuilt := ""
	for i, e := range idx.Entries {
		if i > 0 {
			assert.Greater(t, e.Start, idx.Entries[i-1].Start, "starts strictly increasing")
		}
		raw := e.Leaf.Text()
		rebuilt += raw[e.Trim : e.Trim+e.Len]
	}
	assert.Equal(t, idx.Text, rebuilt)
}

func TestBuildIndex_SkipsNilLeaves(t *testing.T) {
	idx := BuildIndex([]ir.Leaf{nil, &leaf{text: "x"}})
	assert.Equal(t, "x", idx.Text)
}
