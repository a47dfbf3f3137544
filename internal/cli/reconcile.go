package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reanchor/internal/dom"
	"github.com/roach88/reanchor/internal/engine"
	"github.com/roach88/reanchor/internal/store"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Database string
	Output   string
}

// PassSummary is the JSON/text form of one engine pass.
type PassSummary struct {
	Seq         int64  `json:"seq"`
	Reason      string `json:"reason"`
	Fingerprint string `json:"fingerprint"`
	Configs     int    `json:"configs"`
	Injected    int    `json:"injected"`
	Released    int    `json:"released"`
	Kept        int    `json:"kept"`
	Failed      int    `json:"failed"`
	Unanchored  int    `json:"unanchored"`
}

func newPassSummary(r engine.PassReport) PassSummary {
	return PassSummary{
		Seq:         r.Seq,
		Reason:      r.Reason.String(),
		Fingerprint: r.Fingerprint,
		Configs:     r.Configs,
		Injected:    r.Injected,
		Released:    r.Released,
		Kept:        r.Kept,
		Failed:      r.Failed,
		Unanchored:  r.Unanchored,
	}
}

func (p PassSummary) String() string {
	return fmt.Sprintf("pass #%d (%s): injected=%d released=%d kept=%d failed=%d unanchored=%d",
		p.Seq, p.Reason, p.Injected, p.Released, p.Kept, p.Failed, p.Unanchored)
}

// AnnotationStatus reports where one annotation anchored.
type AnnotationStatus struct {
	ID       string   `json:"id"`
	Fragment string   `json:"fragment"`
	Anchors  int      `json:"anchors"`
	Elements []string `json:"elements"`
}

// ReconcileResult is the outcome of a single pass over stored annotations.
type ReconcileResult struct {
	Document    string             `json:"document"`
	Pass        PassSummary        `json:"pass"`
	Annotations []AnnotationStatus `json:"annotations"`
	Output      string             `json:"output,omitempty"`
}

func (r ReconcileResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", r.Document, r.Pass)
	for _, a := range r.Annotations {
		if a.Anchors == 0 {
			fmt.Fprintf(&b, "\n  %s  unanchored", a.ID)
			continue
		}
		fmt.Fprintf(&b, "\n  %s  %d anchor(s) in %s", a.ID, a.Anchors, strings.Join(a.Elements, ", "))
	}
	if r.Output != "" {
		fmt.Fprintf(&b, "\nWrote %s", r.Output)
	}
	return b.String()
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile <document>",
		Short: "Anchor a document's stored annotations once",
		Long: `Run one reconciliation pass for every annotation stored against a
document, tagging the elements that hold each best match. The pass is
recorded in the database audit log.

Exits with status 1 when any annotation is left unanchored.

Examples:
  reanchor reconcile page.xhtml --db notes.db
  reanchor reconcile page.xhtml --db notes.db --output tagged.xhtml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the tagged document to this file")

	return cmd
}

func runReconcile(opts *ReconcileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	key := documentKey(path)

	doc, err := loadDocument(opts.RootOptions, path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDocument, "failed to load document", err)
	}
	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	anns, r, err := newReconciler(ctx, st, key, doc, nil)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to prepare reconciliation", err)
	}
	defer r.Detach()

	report, err := r.Reconcile(engine.ChangeManual)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "reconciliation failed", err)
	}
	for _, e := range report.Errors {
		formatter.VerboseLog("%v", e)
	}

	result := ReconcileResult{
		Document:    key,
		Pass:        newPassSummary(report),
		Annotations: annotationStatuses(doc, r, anns),
	}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(doc.OutputXML()), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write output", err)
		}
		result.Output = opts.Output
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if report.Unanchored > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d annotation(s) unanchored", report.Unanchored))
	}
	return nil
}

// newReconciler loads a document's annotations and builds a Reconciler
// that records its passes in st, continuing the stored pass numbering.
// onPass, if set, sees each report after it is recorded.
func newReconciler(ctx context.Context, st *store.Store, key string, doc *dom.Document, onPass func(engine.PassReport), opts ...engine.Option) ([]store.Annotation, *engine.Reconciler, error) {
	anns, err := st.ReadAnnotations(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	last, err := st.LastPassSeq(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	recorder := store.NewPassRecorder(ctx, st, key, nil)
	observer := engine.PassObserverFunc(func(report engine.PassReport) {
		recorder.PassCompleted(report)
		if onPass != nil {
			onPass(report)
		}
	})
	base := []engine.Option{
		engine.WithExclusion(doc.IsExcluded),
		engine.WithClock(engine.NewClockAt(last)),
		engine.WithObserver(observer),
	}
	r := engine.New(doc, append(base, opts...)...)
	if err := r.SetConfigs(annotationConfigs(doc, anns)); err != nil {
		return nil, nil, err
	}
	return anns, r, nil
}

// annotationConfigs registers each annotation with an attribute injector.
func annotationConfigs(doc *dom.Document, anns []store.Annotation) []engine.Config {
	configs := make([]engine.Config, len(anns))
	for i, a := range anns {
		configs[i] = engine.Config{
			ID:       a.ID,
			Selector: a.Selector,
			Inject:   doc.Inject(a.ID),
		}
	}
	return configs
}

func annotationStatuses(doc *dom.Document, r *engine.Reconciler, anns []store.Annotation) []AnnotationStatus {
	tagged := doc.Tagged()
	out := make([]AnnotationStatus, len(anns))
	for i, a := range anns {
		elements := tagged[a.ID]
		if elements == nil {
			elements = []string{}
		}
		out[i] = AnnotationStatus{
			ID:       a.ID,
			Fragment: a.Fragment,
			Anchors:  len(r.Artifacts(a.ID)),
			Elements: elements,
		}
	}
	return out
}
