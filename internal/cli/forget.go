package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/reanchor/internal/store"
)

// ForgetOptions holds flags for the forget command.
type ForgetOptions struct {
	*RootOptions
	Database string
}

// ForgetResult reports a deleted annotation.
type ForgetResult struct {
	ID string `json:"id"`
}

func (r ForgetResult) String() string {
	return "Forgot " + r.ID
}

// NewForgetCommand creates the forget command.
func NewForgetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ForgetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "forget <annotation-id>",
		Short:         "Delete a stored annotation",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForget(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runForget(opts *ForgetOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	if err := st.DeleteAnnotation(cmd.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return formatter.Fail(ExitFailure, ErrCodeNotFound, "annotation not found", err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to delete annotation", err)
	}
	return formatter.Success(ForgetResult{ID: id})
}
