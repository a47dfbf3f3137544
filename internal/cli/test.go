package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reanchor/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario name filter (glob pattern)
}

// ScenarioOutcome is the result of one scenario.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Passes int      `json:"passes"`
	Errors []string `json:"errors,omitempty"`
}

// TestSummary is the result of a scenario directory.
type TestSummary struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

func (s TestSummary) String() string {
	if s.Total == 0 {
		return "No scenarios found."
	}

	var b strings.Builder
	for _, sc := range s.Scenarios {
		if sc.Pass {
			fmt.Fprintf(&b, "PASS  %s (%d passes)\n", sc.Name, sc.Passes)
			continue
		}
		fmt.Fprintf(&b, "FAIL  %s\n", sc.Name)
		for _, e := range sc.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(&b, "      %s\n", line)
			}
		}
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d total", s.Passed, s.Failed, s.Total)
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run reconciliation scenarios",
		Long: `Run YAML reconciliation scenarios against the engine.

Each scenario loads a document and its annotations into a fresh in-memory
database, applies document edits step by step, and checks the recorded
passes, anchors and tagging.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing directory, bad filter)

Examples:
  reanchor test ./scenarios
  reanchor test ./scenarios --filter "edit_*"
  reanchor test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose file name matches this glob")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(dir); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "scenarios directory not found", err)
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid filter pattern", err)
		}
	}

	paths, err := harness.FindScenarios(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to find scenarios", err)
	}

	summary := TestSummary{Scenarios: []ScenarioOutcome{}}
	for _, path := range paths {
		base := filepath.Base(path)
		if opts.Filter != "" {
			name := strings.TrimSuffix(base, filepath.Ext(base))
			if ok, _ := filepath.Match(opts.Filter, name); !ok {
				continue
			}
		}

		outcome := runScenario(path)
		formatter.VerboseLog("%s: pass=%t", outcome.Name, outcome.Pass)
		summary.Scenarios = append(summary.Scenarios, outcome)
		summary.Total++
		if outcome.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if err := formatter.Success(summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

// runScenario loads and runs one file. Load and execution errors count as
// a failed scenario.
func runScenario(path string) ScenarioOutcome {
	outcome := ScenarioOutcome{Name: filepath.Base(path), Path: path}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		outcome.Errors = []string{err.Error()}
		return outcome
	}
	outcome.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		outcome.Errors = []string{err.Error()}
		return outcome
	}
	outcome.Pass = result.Pass
	outcome.Passes = len(result.Trace)
	outcome.Errors = result.Errors
	return outcome
}
