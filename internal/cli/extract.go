package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reanchor/internal/anchor"
	"github.com/roach88/reanchor/internal/fragment"
	"github.com/roach88/reanchor/internal/ir"
)

// ExtractOptions holds flags for the extract command.
type ExtractOptions struct {
	*RootOptions
	Start int
	End   int
	Find  string
}

// ExtractResult is a selector recorded for a text range.
type ExtractResult struct {
	Start    int         `json:"start"`
	End      int         `json:"end"`
	Selector ir.Selector `json:"selector"`
	Fragment string      `json:"fragment"`
}

func (r ExtractResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Range:    [%d,%d)\n", r.Start, r.End)
	fmt.Fprintf(&b, "Exact:    %q\n", r.Selector.Exact)
	fmt.Fprintf(&b, "Prefix:   %q\n", r.Selector.Prefix)
	fmt.Fprintf(&b, "Suffix:   %q\n", r.Selector.Suffix)
	fmt.Fprintf(&b, "Fragment: %s", r.Fragment)
	return b.String()
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExtractOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "extract <document>",
		Short: "Record a selector for a range of document text",
		Long: `Record a portable selector for a range of the document's indexed text.

The range is given either as byte offsets (--start/--end) into the
flattened text, or as the first occurrence of --find.

Examples:
  reanchor extract page.xhtml --start 4 --end 15
  reanchor extract page.xhtml --find "quick brown" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Start, "start", -1, "start offset in the indexed text")
	cmd.Flags().IntVar(&opts.End, "end", -1, "end offset in the indexed text (exclusive)")
	cmd.Flags().StringVar(&opts.Find, "find", "", "select the first occurrence of this text")
	cmd.MarkFlagsMutuallyExclusive("find", "start")
	cmd.MarkFlagsMutuallyExclusive("find", "end")

	return cmd
}

func runExtract(opts *ExtractOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	doc, err := loadDocument(opts.RootOptions, path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDocument, "failed to load document", err)
	}
	idx := doc.BuildIndex()
	formatter.VerboseLog("Indexed %d leaves, %d bytes of text", len(idx.Entries), idx.Len())

	start, end := opts.Start, opts.End
	if opts.Find != "" {
		start = strings.Index(idx.Text, opts.Find)
		if start < 0 {
			return formatter.Fail(ExitFailure, ErrCodeNotAnchored, fmt.Sprintf("text %q not found", opts.Find), nil)
		}
		end = start + len(opts.Find)
	}
	if start < 0 || end < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeRange, "either --find or both --start and --end are required", nil)
	}

	sel, err := anchor.ExtractOffsets(idx, start, end)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRange, "invalid range", err)
	}
	frag, err := fragment.Encode(sel)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeFragment, "failed to encode fragment", err)
	}

	return formatter.Success(ExtractResult{Start: start, End: end, Selector: sel, Fragment: frag})
}
