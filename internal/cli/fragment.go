package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reanchor/internal/fragment"
	"github.com/roach88/reanchor/internal/ir"
)

// FragmentResult pairs a selector with its wire form.
type FragmentResult struct {
	Selector ir.Selector `json:"selector"`
	Fragment string      `json:"fragment"`
	ID       string      `json:"id"`
}

func (r FragmentResult) String() string {
	return fmt.Sprintf("Fragment: %s\nExact:    %q\nPrefix:   %q\nSuffix:   %q\nID:       %s",
		r.Fragment, r.Selector.Exact, r.Selector.Prefix, r.Selector.Suffix, r.ID)
}

// NewFragmentCommand creates the fragment command group.
func NewFragmentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fragment",
		Short: "Encode and decode selector fragments",
	}
	cmd.AddCommand(newFragmentEncodeCommand(rootOpts))
	cmd.AddCommand(newFragmentDecodeCommand(rootOpts))
	return cmd
}

func newFragmentEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	var exact, prefix, suffix string

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a selector as a fragment",
		Long: `Encode a selector as a URL-fragment-safe string.

Example:
  reanchor fragment encode --exact "quick brown" --prefix "The " --suffix " fox"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			sel, err := ir.NewSelector(exact, prefix, suffix)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeFragment, "invalid selector", err)
			}
			return outputFragment(formatter, sel)
		},
	}

	cmd.Flags().StringVar(&exact, "exact", "", "exact text (required)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "text before the span")
	cmd.Flags().StringVar(&suffix, "suffix", "", "text after the span")
	_ = cmd.MarkFlagRequired("exact")

	return cmd
}

func newFragmentDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "decode <fragment>",
		Short:         "Decode a fragment into its selector",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			sel, err := fragment.Decode(args[0])
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeFragment, "failed to decode fragment", err)
			}
			return outputFragment(formatter, sel)
		},
	}
}

func outputFragment(formatter *OutputFormatter, sel ir.Selector) error {
	frag, err := fragment.Encode(sel)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeFragment, "failed to encode fragment", err)
	}
	id, err := ir.SelectorID(sel)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeFragment, "failed to hash selector", err)
	}
	return formatter.Success(FragmentResult{Selector: sel, Fragment: frag, ID: id})
}
