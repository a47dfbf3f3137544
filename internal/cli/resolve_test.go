package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_SingleMatch(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "page.xhtml", testPage)

	out, err := runCLI(t, "--format", "json", "resolve", doc, quickBrown)
	require.NoError(t, err)

	result := decodeData[ResolveResult](t, out)
	require.Len(t, result.Matches, 1)
	m := result.Matches[0]
	assert.Equal(t, 1, m.Rank)
	assert.Equal(t, 4, m.Start)
	assert.Equal(t, 15, m.End)
	assert.Equal(t, 0, m.Distance)
	assert.True(t, m.Best)
	assert.False(t, m.Excluded)
	assert.Equal(t, "p", m.Element)
	assert.Equal(t, "The ", m.Prefix)
}

func TestResolve_RanksByContext(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "page.xhtml", `<p>a cat and the cat</p>`)

	out, err := runCLI(t, "--format", "json", "resolve", doc, "e=cat&p=the%20", "--explain")
	require.NoError(t, err)

	result := decodeData[ResolveResult](t, out)
	require.Len(t, result.Matches, 2)

	best, other := result.Matches[0], result.Matches[1]
	assert.Equal(t, 14, best.Start)
	assert.True(t, best.Best)
	assert.Equal(t, 0, best.Distance)
	assert.Empty(t, best.Explain)

	assert.Equal(t, 2, other.Start)
	assert.False(t, other.Best)
	assert.Positive(t, other.Distance)
	assert.Contains(t, other.Explain, "--- recorded")
	assert.Contains(t, other.Explain, "+++ document")
	assert.Contains(t, other.Explain, `-prefix: the `)
}

func TestResolve_ExclusionZone(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "reanchor.yaml", "exclude:\n  - \"//p[@class='nav']\"\n")
	doc := writeFile(t, dir, "page.xhtml", `<div><p class="nav">cat</p><p>a cat</p></div>`)

	out, err := runCLI(t, "--config", cfg, "--format", "json", "resolve", doc, "e=cat")
	require.NoError(t, err)

	result := decodeData[ResolveResult](t, out)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, 0, result.Matches[0].Start)
	assert.True(t, result.Matches[0].Excluded)
	assert.False(t, result.Matches[0].Best)
	assert.Equal(t, 5, result.Matches[1].Start)
	assert.True(t, result.Matches[1].Best)
}

func TestResolve_NotAnchorable(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "page.xhtml", testPage)

	out, err := runCLI(t, "resolve", doc, "e=zebra")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `No match for "zebra"`)
}

func TestResolve_BadFragment(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "page.xhtml", testPage)

	_, err := runCLI(t, "resolve", doc, "x=1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
