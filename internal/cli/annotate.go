package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reanchor/internal/anchor"
	"github.com/roach88/reanchor/internal/fragment"
	"github.com/roach88/reanchor/internal/store"
)

// AnnotateOptions holds flags for the annotate command.
type AnnotateOptions struct {
	*RootOptions
	Database string
	Note     string
}

// AnnotationResult describes a stored annotation.
type AnnotationResult struct {
	ID       string `json:"id"`
	Document string `json:"document"`
	Fragment string `json:"fragment"`
	Note     string `json:"note,omitempty"`
	Seq      int64  `json:"seq"`
	Created  bool   `json:"created"`
	Matches  int    `json:"matches"`
}

func (r AnnotationResult) String() string {
	verb := "Annotated"
	if !r.Created {
		verb = "Already annotated"
	}
	return fmt.Sprintf("%s %s as %s (%d current match(es))", verb, r.Document, r.ID, r.Matches)
}

// NewAnnotateCommand creates the annotate command.
func NewAnnotateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnnotateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "annotate <document> <fragment>",
		Short: "Store a selector against a document",
		Long: `Store a selector fragment as an annotation on a document.

Annotating the same selector twice returns the existing annotation.
The selector does not need to match the document today.

Examples:
  reanchor annotate page.xhtml 'e=quick%20brown&p=The%20' --db notes.db --note "check this"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Note, "note", "", "free-text note")

	return cmd
}

func runAnnotate(opts *AnnotateOptions, path, frag string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sel, err := fragment.Decode(frag)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeFragment, "failed to decode fragment", err)
	}
	doc, err := loadDocument(opts.RootOptions, path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDocument, "failed to load document", err)
	}
	matches, err := anchor.ResolveAll(doc.BuildIndex(), sel)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "resolution failed", err)
	}

	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	a, created, err := st.WriteAnnotation(cmd.Context(), documentKey(path), sel, opts.Note)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to store annotation", err)
	}

	return formatter.Success(AnnotationResult{
		ID:       a.ID,
		Document: a.Document,
		Fragment: a.Fragment,
		Note:     a.Note,
		Seq:      a.CreatedSeq,
		Created:  created,
		Matches:  len(matches),
	})
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
	Document string
}

// ListResult lists stored annotations.
type ListResult struct {
	Annotations []AnnotationResult `json:"annotations"`
}

func (r ListResult) String() string {
	if len(r.Annotations) == 0 {
		return "No annotations"
	}
	var b strings.Builder
	for i, a := range r.Annotations {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s  #%d  %s", a.ID, a.Document, a.Seq, a.Fragment)
		if a.Note != "" {
			fmt.Fprintf(&b, "  %q", a.Note)
		}
	}
	return b.String()
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored annotations",
		Long: `List stored annotations, for one document or for all of them.

Examples:
  reanchor list --db notes.db
  reanchor list --db notes.db --document page.xhtml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Document, "document", "", "only list annotations of this document")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	docs := []string{documentKey(opts.Document)}
	if opts.Document == "" {
		docs, err = st.Documents(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list documents", err)
		}
	}

	result := ListResult{Annotations: []AnnotationResult{}}
	for _, doc := range docs {
		anns, err := st.ReadAnnotations(ctx, doc)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to read annotations", err)
		}
		for _, a := range anns {
			result.Annotations = append(result.Annotations, annotationResult(a))
		}
	}
	return formatter.Success(result)
}

func annotationResult(a store.Annotation) AnnotationResult {
	return AnnotationResult{
		ID:       a.ID,
		Document: a.Document,
		Fragment: a.Fragment,
		Note:     a.Note,
		Seq:      a.CreatedSeq,
	}
}
