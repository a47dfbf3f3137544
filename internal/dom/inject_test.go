package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reanchor/internal/engine"
	"github.com/roach88/reanchor/internal/ir"
)

func TestInject_TagsAndReleases(t *testing.T) {
	d, err := ParseString(page)
	require.NoError(t, err)

	r := engine.New(d, engine.WithExclusion(d.IsExcluded))
	require.NoError(t, r.SetConfigs([]engine.Config{{
		ID:       "n1",
		Selector: ir.Selector{Exact: "quick brown", Prefix: "The ", Suffix: " fox"},
		Inject:   d.Inject("n1"),
	}}))

	report, err := r.Reconcile(engine.ChangeManual)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Injected)
	assert.Contains(t, d.OutputXML(), `data-reanchor="n1"`)
	assert.Equal(t, map[string][]string{"n1": {"p"}}, d.Tagged())

	require.NoError(t, r.SetConfigs(nil))
	assert.NotContains(t, d.OutputXML(), "data-reanchor")
	assert.Empty(t, d.Tagged())
}

func TestInject_SharedElementTokens(t *testing.T) {
	d, err := ParseString(`<p>a cat and a dog</p>`, WithArtifactAttr("data-note"))
	require.NoError(t, err)

	r := engine.New(d)
	require.NoError(t, r.SetConfigs([]engine.Config{
		{ID: "cat", Selector: ir.Selector{Exact: "cat"}, Inject: d.Inject("cat")},
		{ID: "dog", Selector: ir.Selector{Exact: "dog"}, Inject: d.Inject("dog")},
	}))
	_, err = r.Reconcile(engine.ChangeManual)
	require.NoError(t, err)
	assert.Contains(t, d.OutputXML(), `data-note="cat dog"`)

	require.NoError(t, r.SetConfigs([]engine.Config{
		{ID: "dog", Selector: ir.Selector{Exact: "dog"}, Inject: d.Inject("dog")},
	}))
	assert.Contains(t, d.OutputXML(), `data-note="dog"`)
}

func TestInject_ExclusionZoneNeverTagged(t *testing.T) {
	d, err := ParseString(page, WithExclude("//*[@contenteditable]"))
	require.NoError(t, err)

	r := engine.New(d, engine.WithExclusion(d.IsExcluded))
	require.NoError(t, r.SetConfigs([]engine.Config{{
		ID: "j", Selector: ir.Selector{Exact: "jumps"}, Inject: d.Inject("j"),
	}}))

	report, err := r.Reconcile(engine.ChangeManual)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unanchored)
	assert.Empty(t, d.Tagged())
}

func TestInject_ForeignSpan(t *testing.T) {
	d, err := ParseString(page)
	require.NoError(t, err)
	other, err := ParseString(page)
	require.NoError(t, err)

	span := ir.Span{Start: ir.Coordinate{Leaf: other.Leaves()[0]}}
	_, err = d.Inject("x")(span)
	assert.Error(t, err)
}
