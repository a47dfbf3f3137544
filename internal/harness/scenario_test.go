package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: test_scenario
description: "Test scenario for validation"
document: '<p>The quick brown fox</p>'
configs:
  - id: quick
    fragment: "e=quick%20brown"
  - id: fox
    exact: fox
    prefix: "brown "
    note: animal
steps:
  - op: reconcile
    expect: { injected: 2 }
  - op: set_text
    leaf: 0
    text: "A quick brown fox"
  - op: configs
    configs: [fox]
assertions:
  - type: pass_count
    count: 2
  - type: anchored
    config: fox
    offsets: [14]
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, validScenario))
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "<p>The quick brown fox</p>", scenario.Document)
	require.Len(t, scenario.Configs, 2)
	assert.Equal(t, "e=quick%20brown", scenario.Configs[0].Fragment)
	assert.Equal(t, "animal", scenario.Configs[1].Note)

	require.Len(t, scenario.Steps, 3)
	assert.Equal(t, OpReconcile, scenario.Steps[0].Op)
	assert.Equal(t, map[string]int{"injected": 2}, scenario.Steps[0].Expect)
	assert.Equal(t, "A quick brown fox", scenario.Steps[1].Text)
	assert.Equal(t, []string{"fox"}, scenario.Steps[2].Configs)

	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, []int{14}, scenario.Assertions[1].Offsets)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "name: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "scenario.yaml")
}

func TestLoadScenario_UnknownFieldsRejected(t *testing.T) {
	content := strings.Replace(validScenario, "description:", "descripton:", 1)
	_, err := LoadScenario(writeScenario(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descripton")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		wantErr string
	}{
		{"missing name", [2]string{"name: test_scenario", ""}, "name is required"},
		{"missing description", [2]string{`description: "Test scenario for validation"`, ""}, "description is required"},
		{"missing document", [2]string{"document: '<p>The quick brown fox</p>'", ""}, "document is required"},
		{"duplicate id", [2]string{"id: fox", "id: quick"}, `duplicate id "quick"`},
		{"same selector", [2]string{"exact: fox\n    prefix: \"brown \"", "exact: quick brown"}, `same selector as "quick"`},
		{"fragment and exact", [2]string{`fragment: "e=quick%20brown"`, "fragment: \"e=quick%20brown\"\n    exact: quick"}, "mutually exclusive"},
		{"bad fragment", [2]string{`fragment: "e=quick%20brown"`, `fragment: "p=only-prefix"`}, "configs[0]"},
		{"missing op", [2]string{"op: reconcile", "leaf: 0"}, "op is required"},
		{"unknown op", [2]string{"op: reconcile", "op: rewind"}, `unknown op "rewind"`},
		{"negative leaf", [2]string{"leaf: 0", "leaf: -1"}, "leaf must be non-negative"},
		{"unknown step config", [2]string{"configs: [fox]", "configs: [wolf]"}, `unknown config "wolf"`},
		{"unknown expect key", [2]string{"expect: { injected: 2 }", "expect: { moved: 2 }"}, `unknown key "moved"`},
		{"unknown assertion type", [2]string{"type: pass_count", "type: trace_contains"}, `unknown assertion type "trace_contains"`},
		{"negative count", [2]string{"count: 2", "count: -1"}, "count must be non-negative"},
		{"unknown assertion config", [2]string{"config: fox", "config: wolf"}, `unknown config "wolf"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Replace(validScenario, tt.replace[0], tt.replace[1], 1)
			require.NotEqual(t, validScenario, content, "replacement did not apply")

			_, err := ParseScenario(strings.NewReader(content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_EmptyLists(t *testing.T) {
	noSteps := strings.Replace(validScenario, "steps:", "unused_steps:", 1)
	_, err := ParseScenario(strings.NewReader(noSteps))
	require.Error(t, err, "unknown key must be rejected before list checks")

	minimal := `
name: minimal
description: "no steps"
document: '<p>x</p>'
assertions:
  - type: pass_count
    count: 0
`
	_, err = ParseScenario(strings.NewReader(minimal))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps list is required")

	noAssertions := `
name: minimal
description: "no assertions"
document: '<p>x</p>'
steps:
  - op: reconcile
`
	_, err = ParseScenario(strings.NewReader(noAssertions))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertions list is required")
}

func TestParseScenario_AssertionRequirements(t *testing.T) {
	base := `
name: assertion_checks
description: "assertion validation"
document: '<p>x</p>'
configs:
  - id: x
    exact: x
steps:
  - op: reconcile
assertions:
`
	tests := []struct {
		name      string
		assertion string
		wantErr   string
	}{
		{"pass without seq", "  - type: pass\n    expect: { kept: 1 }", "seq is required for pass"},
		{"pass without expect", "  - type: pass\n    seq: 1", "expect is required for pass"},
		{"pass unknown key", "  - type: pass\n    seq: 1\n    expect: { fingerprint: abc }", `unknown pass key "fingerprint"`},
		{"anchored without config", "  - type: anchored\n    offsets: [0]", "config is required for anchored"},
		{"tagged without config", "  - type: tagged", "config is required for tagged"},
		{"final_state without table", "  - type: final_state\n    expect: { seq: 1 }", "table is required for final_state"},
		{"final_state without expect", "  - type: final_state\n    table: passes", "expect is required for final_state"},
		{"missing type", "  - count: 1", "type is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario(strings.NewReader(base + tt.assertion + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_PassCountZeroAllowed(t *testing.T) {
	content := `
name: zero
description: "no passes"
document: '<p>x</p>'
steps:
  - op: configs
assertions:
  - type: pass_count
    count: 0
`
	scenario, err := ParseScenario(strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, 0, scenario.Assertions[0].Count)
}

func TestConfigSpec_Selector(t *testing.T) {
	sel, err := ConfigSpec{ID: "a", Fragment: "e=quick%20brown&p=The%20"}.Selector()
	require.NoError(t, err)
	assert.Equal(t, "quick brown", sel.Exact)
	assert.Equal(t, "The ", sel.Prefix)

	sel, err = ConfigSpec{ID: "b", Exact: "fox", Suffix: "."}.Selector()
	require.NoError(t, err)
	assert.Equal(t, "fox", sel.Exact)
	assert.Equal(t, ".", sel.Suffix)
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "pass", AssertPass)
	assert.Equal(t, "pass_count", AssertPassCount)
	assert.Equal(t, "anchored", AssertAnchored)
	assert.Equal(t, "tagged", AssertTagged)
	assert.Equal(t, "final_state", AssertFinalState)
}

func TestLoadExampleScenarios(t *testing.T) {
	paths, err := FindScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Configs)
		})
	}
}
