package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reanchor/internal/anchor"
	"github.com/roach88/reanchor/internal/dom"
	"github.com/roach88/reanchor/internal/fragment"
	"github.com/roach88/reanchor/internal/ir"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Explain bool
}

// MatchResult is one ranked candidate.
type MatchResult struct {
	Rank     int    `json:"rank"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Distance int    `json:"distance"`
	Best     bool   `json:"best"`
	Excluded bool   `json:"excluded"`
	Element  string `json:"element,omitempty"`
	Prefix   string `json:"prefix"`
	Suffix   string `json:"suffix"`
	Explain  string `json:"explain,omitempty"`
}

// ResolveResult lists every occurrence of a selector, best first.
type ResolveResult struct {
	Selector ir.Selector   `json:"selector"`
	Matches  []MatchResult `json:"matches"`
}

func (r ResolveResult) String() string {
	if len(r.Matches) == 0 {
		return fmt.Sprintf("No match for %q", r.Selector.Exact)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d match(es) for %q:", len(r.Matches), r.Selector.Exact)
	for _, m := range r.Matches {
		marker := " "
		if m.Best {
			marker = "*"
		}
		fmt.Fprintf(&b, "\n%s #%d [%d,%d) distance=%d", marker, m.Rank, m.Start, m.End, m.Distance)
		if m.Element != "" {
			fmt.Fprintf(&b, " <%s>", m.Element)
		}
		if m.Excluded {
			b.WriteString(" (excluded)")
		}
		if m.Explain != "" {
			b.WriteString("\n")
			b.WriteString(strings.TrimRight(m.Explain, "\n"))
		}
	}
	return b.String()
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <document> <fragment>",
		Short: "Find and rank every occurrence of a selector",
		Long: `Resolve a selector fragment against a document.

Every occurrence of the exact text is listed, ranked by how closely its
surrounding text matches the recorded prefix and suffix. Matches marked
* form the minimum-distance tie set that reconcile would tag.

Exits with status 1 when the selector has no usable match.

Examples:
  reanchor resolve page.xhtml 'e=quick%20brown&p=The%20&s=%20fox'
  reanchor resolve page.xhtml 'e=fox' --explain`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "show a context diff for each match")

	return cmd
}

func runResolve(opts *ResolveOptions, path, frag string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sel, err := fragment.Decode(frag)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeFragment, "failed to decode fragment", err)
	}
	doc, err := loadDocument(opts.RootOptions, path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDocument, "failed to load document", err)
	}

	result, err := resolveSelector(doc, sel, opts.Explain)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "resolution failed", err)
	}
	if err := formatter.Success(result); err != nil {
		return err
	}

	for _, m := range result.Matches {
		if m.Best {
			return nil
		}
	}
	return NewExitError(ExitFailure, "selector is not anchorable")
}

// resolveSelector ranks sel's matches in doc and marks the tie set the
// engine would inject.
func resolveSelector(doc *dom.Document, sel ir.Selector, explain bool) (ResolveResult, error) {
	idx := doc.BuildIndex()
	matches, err := anchor.ResolveAll(idx, sel)
	if err != nil {
		return ResolveResult{}, err
	}

	var usable []ir.Match
	excluded := make([]bool, len(matches))
	for i, m := range matches {
		if doc.IsExcluded(m.Span) {
			excluded[i] = true
			continue
		}
		usable = append(usable, m)
	}
	best := make(map[int]bool)
	for _, m := range anchor.MinDistance(usable) {
		best[m.Start] = true
	}

	result := ResolveResult{Selector: sel, Matches: make([]MatchResult, 0, len(matches))}
	for i, m := range matches {
		prefix, suffix := anchor.Context(idx, sel, m)
		mr := MatchResult{
			Rank:     i + 1,
			Start:    m.Start,
			End:      m.End,
			Distance: m.Distance,
			Best:     best[m.Start],
			Excluded: excluded[i],
			Prefix:   prefix,
			Suffix:   suffix,
		}
		if leaf, ok := m.Span.Start.Leaf.(*dom.Leaf); ok {
			mr.Element = leaf.Element()
		}
		if explain {
			mr.Explain = explainContext(sel, prefix, suffix)
		}
		result.Matches = append(result.Matches, mr)
	}
	return result, nil
}
