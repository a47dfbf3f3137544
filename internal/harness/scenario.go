package harness

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reanchor/internal/fragment"
	"github.com/roach88/reanchor/internal/ir"
)

// Scenario defines a reconciliation scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the initial XML/XHTML document.
	Document string `yaml:"document"`

	// Exclude lists XPath expressions naming exclusion zones.
	Exclude []string `yaml:"exclude,omitempty"`

	// Configs are the annotations anchored to the document. All of them
	// are registered before the first step.
	Configs []ConfigSpec `yaml:"configs"`

	// Steps run in order; the harness waits for the engine after each.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ConfigSpec declares one annotation, either as a fragment or as
// exact/prefix/suffix fields.
type ConfigSpec struct {
	ID       string `yaml:"id"`
	Fragment string `yaml:"fragment,omitempty"`
	Exact    string `yaml:"exact,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Suffix   string `yaml:"suffix,omitempty"`
	Note     string `yaml:"note,omitempty"`
}

// Selector returns the declared selector.
func (c ConfigSpec) Selector() (ir.Selector, error) {
	if c.Fragment != "" {
		return fragment.Decode(c.Fragment)
	}
	return ir.NewSelector(c.Exact, c.Prefix, c.Suffix)
}

// Step is one operation of the scenario.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Leaf indexes the document's leaves (set_text, insert_before).
	Leaf int `yaml:"leaf,omitempty"`

	// Text is the new character data (set_text, insert_before).
	Text string `yaml:"text,omitempty"`

	// Document is the replacement document (replace).
	Document string `yaml:"document,omitempty"`

	// Configs lists the config ids to register (configs).
	Configs []string `yaml:"configs,omitempty"`

	// Expect checks the counts of the pass this step caused. Subset
	// match: only listed keys are compared.
	Expect map[string]int `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpReconcile    = "reconcile"
	OpSetText      = "set_text"
	OpInsertBefore = "insert_before"
	OpReplace      = "replace"
	OpConfigs      = "configs"
)

// Assertion validates the trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Seq selects the pass (pass).
	Seq int64 `yaml:"seq,omitempty"`

	// Count is the expected number of passes (pass_count).
	Count int `yaml:"count,omitempty"`

	// Config is the config id (anchored, tagged).
	Config string `yaml:"config,omitempty"`

	// Offsets are the expected artifact start offsets after the last
	// pass (anchored). Empty means unanchored.
	Offsets []int `yaml:"offsets,omitempty"`

	// Elements are the expected tagged element names (tagged).
	Elements []string `yaml:"elements,omitempty"`

	// Table is the audit table name (final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (final_state). All fields must match.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected values. For pass it holds counts; for
	// final_state, column values. Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertPass       = "pass"
	AssertPassCount  = "pass_count"
	AssertAnchored   = "anchored"
	AssertTagged     = "tagged"
	AssertFinalState = "final_state"
)

// countKeys are the keys a step expect or pass assertion may name.
var countKeys = []string{"injected", "released", "kept", "failed", "unanchored"}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return scenario, nil
}

// ParseScenario parses and validates a scenario.
func ParseScenario(r io.Reader) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Document == "" {
		return fmt.Errorf("document is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	ids := make(map[string]bool, len(s.Configs))
	selectors := make(map[string]string, len(s.Configs))
	for i, c := range s.Configs {
		if c.ID == "" {
			return fmt.Errorf("configs[%d]: id is required", i)
		}
		if ids[c.ID] {
			return fmt.Errorf("configs[%d]: duplicate id %q", i, c.ID)
		}
		ids[c.ID] = true

		if c.Fragment != "" && (c.Exact != "" || c.Prefix != "" || c.Suffix != "") {
			return fmt.Errorf("configs[%d]: fragment and exact/prefix/suffix are mutually exclusive", i)
		}
		sel, err := c.Selector()
		if err != nil {
			return fmt.Errorf("configs[%d]: %w", i, err)
		}
		// The store keeps one annotation per selector.
		key, err := ir.SelectorID(sel)
		if err != nil {
			return fmt.Errorf("configs[%d]: %w", i, err)
		}
		if other, dup := selectors[key]; dup {
			return fmt.Errorf("configs[%d]: same selector as %q", i, other)
		}
		selectors[key] = c.ID
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step, ids); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, ids); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step, ids map[string]bool) error {
	switch step.Op {
	case OpReconcile:
	case OpSetText, OpInsertBefore:
		if step.Leaf < 0 {
			return fmt.Errorf("steps[%d]: leaf must be non-negative", index)
		}
	case OpReplace:
		if step.Document == "" {
			return fmt.Errorf("steps[%d]: document is required for replace", index)
		}
	case OpConfigs:
		for _, id := range step.Configs {
			if !ids[id] {
				return fmt.Errorf("steps[%d]: unknown config %q", index, id)
			}
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	for key := range step.Expect {
		if !slices.Contains(countKeys, key) {
			return fmt.Errorf("steps[%d].expect: unknown key %q", index, key)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, ids map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPass:
		if a.Seq <= 0 {
			return fmt.Errorf("assertions[%d]: seq is required for pass", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for pass", index)
		}
		for key := range a.Expect {
			if !slices.Contains(countKeys, key) && key != "reason" {
				return fmt.Errorf("assertions[%d]: unknown pass key %q", index, key)
			}
		}
	case AssertPassCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for pass_count", index)
		}
	case AssertAnchored, AssertTagged:
		if a.Config == "" {
			return fmt.Errorf("assertions[%d]: config is required for %s", index, a.Type)
		}
		if !ids[a.Config] {
			return fmt.Errorf("assertions[%d]: unknown config %q", index, a.Config)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
