package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reanchor/internal/testutil"
)

func parseScenario(t *testing.T, content string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario(strings.NewReader(content))
	require.NoError(t, err)
	return scenario
}

const foxScenario = `
name: fox
description: "one config, one edit"
document: '<html><body><p>The quick brown fox</p></body></html>'
configs:
  - id: fox
    exact: fox
steps:
  - op: reconcile
    expect: { injected: 1 }
  - op: set_text
    leaf: 0
    text: "fox and fox"
    expect: { injected: 2, released: 1, kept: 0 }
assertions:
  - type: pass_count
    count: 2
  - type: anchored
    config: fox
    offsets: [0, 8]
`

func TestRun_MinimalScenario(t *testing.T) {
	testutil.SilenceLogs(t)

	result, err := Run(parseScenario(t, foxScenario))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, "manual", result.Trace[0].Reason)
	assert.Equal(t, []int{16}, result.Trace[0].Anchors["fox"])
	assert.Equal(t, int64(2), result.Trace[1].Seq)
	assert.Equal(t, "mutation", result.Trace[1].Reason)
	assert.Equal(t, []int{0, 8}, result.Trace[1].Anchors["fox"])
}

func TestRun_ExampleScenarios(t *testing.T) {
	testutil.SilenceLogs(t)

	paths, err := FindScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_TaggedCapturedBeforeShutdown(t *testing.T) {
	testutil.SilenceLogs(t)

	scenario := parseScenario(t, `
name: tagged
description: "tagging survives until the end of the scenario"
document: '<html><body><h1>Title</h1><p>Body text</p></body></html>'
configs:
  - id: body
    exact: Body
steps:
  - op: reconcile
assertions:
  - type: tagged
    config: body
    elements: [p]
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, map[string][]string{"body": {"p"}}, result.Tagged)
}

func TestRun_StepExpectMismatch(t *testing.T) {
	testutil.SilenceLogs(t)

	content := strings.Replace(foxScenario, "expect: { injected: 1 }", "expect: { injected: 4, kept: 1 }", 1)
	result, err := Run(parseScenario(t, content))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "step 0 (reconcile): injected = 1, want 4", result.Errors[0])
	assert.Equal(t, "step 0 (reconcile): kept = 0, want 1", result.Errors[1])
}

func TestRun_ExpectWithoutPass(t *testing.T) {
	testutil.SilenceLogs(t)

	scenario := parseScenario(t, `
name: no_pass
description: "registering configs does not run a pass"
document: '<p>text</p>'
configs:
  - id: text
    exact: text
steps:
  - op: configs
    configs: [text]
    expect: { injected: 0 }
assertions:
  - type: pass_count
    count: 0
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"step 0 (configs): expected exactly one pass, got 0"}, result.Errors)
}

func TestRun_FailedAssertion(t *testing.T) {
	testutil.SilenceLogs(t)

	content := strings.Replace(foxScenario, "offsets: [0, 8]", "offsets: [16]", 1)
	result, err := Run(parseScenario(t, content))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: anchored")
	assert.Contains(t, result.Errors[0], "anchored at [0 8]")
}

func TestRun_ConfigsStepReleases(t *testing.T) {
	testutil.SilenceLogs(t)

	scenario := parseScenario(t, `
name: drop_config
description: "a retired config loses its tagging without a pass"
document: '<html><body><p>alpha</p><p>beta</p></body></html>'
configs:
  - id: alpha
    exact: alpha
  - id: beta
    exact: beta
steps:
  - op: reconcile
    expect: { injected: 2 }
  - op: configs
    configs: [beta]
assertions:
  - type: pass_count
    count: 1
  - type: tagged
    config: alpha
  - type: tagged
    config: beta
    elements: [p]
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.NotContains(t, result.Tagged, "alpha")
}

func TestRun_LeafOutOfRange(t *testing.T) {
	testutil.SilenceLogs(t)

	content := strings.Replace(foxScenario, "leaf: 0", "leaf: 3", 1)
	_, err := Run(parseScenario(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (set_text)")
	assert.Contains(t, err.Error(), "leaf 3 out of range (document has 1)")
}

func TestRun_InvalidDocument(t *testing.T) {
	testutil.SilenceLogs(t)

	content := strings.Replace(foxScenario, "<html><body><p>The quick brown fox</p></body></html>", "<p>mismatched</div>", 1)
	_, err := Run(parseScenario(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse document")
}

func TestRun_InvalidReplacement(t *testing.T) {
	testutil.SilenceLogs(t)

	scenario := parseScenario(t, `
name: bad_replace
description: "a malformed replacement stops the scenario"
document: '<p>text</p>'
steps:
  - op: replace
    document: '<p>mismatched</div>'
assertions:
  - type: pass_count
    count: 0
`)

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse replacement")
}

func TestRun_Deterministic(t *testing.T) {
	testutil.SilenceLogs(t)

	scenario := parseScenario(t, foxScenario)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	firstJSON, err := MarshalTrace(scenario.Name, first.Trace)
	require.NoError(t, err)
	secondJSON, err := MarshalTrace(scenario.Name, second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestRun_FreshDatabasePerRun(t *testing.T) {
	testutil.SilenceLogs(t)

	scenario := parseScenario(t, foxScenario)
	for range 2 {
		result, err := Run(scenario)
		require.NoError(t, err)
		require.NotEmpty(t, result.Trace)
		assert.Equal(t, int64(1), result.Trace[0].Seq, "each run starts a new pass sequence")
	}
}

func TestResult_AddError(t *testing.T) {
	result := NewResult()
	assert.True(t, result.Pass)

	result.AddError("boom")
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"boom"}, result.Errors)
}

func TestResult_LastPass(t *testing.T) {
	result := NewResult()
	_, ok := result.LastPass()
	assert.False(t, ok)

	result.AddPass(TraceEvent{Seq: 1})
	result.AddPass(TraceEvent{Seq: 2, Kept: 3})
	last, ok := result.LastPass()
	require.True(t, ok)
	assert.Equal(t, int64(2), last.Seq)
	assert.Equal(t, 3, last.Kept)
	assert.Len(t, result.Trace, 2)
}
