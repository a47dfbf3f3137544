package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/reanchor/internal/dom"
	"github.com/roach88/reanchor/internal/engine"
	"github.com/roach88/reanchor/internal/ir"
	"github.com/roach88/reanchor/internal/store"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Database string
	Interval time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <document>",
		Short: "Keep a document's annotations anchored while it changes",
		Long: `Reconcile a document's stored annotations, then keep re-anchoring them
whenever the file on disk changes or annotations are added or forgotten.
Each pass is printed and recorded in the database audit log.

Runs until interrupted.

Examples:
  reanchor watch page.xhtml --db notes.db
  reanchor watch page.xhtml --db notes.db --interval 1s --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			ctx, cancel := cancelOnSignal(cmd.Context(), sigChan)
			defer cancel()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 500*time.Millisecond, "how often to check the file and database")

	return cmd
}

// cancelOnSignal derives a context that is cancelled when a signal arrives
// on sigs or parent is done.
func cancelOnSignal(parent context.Context, sigs <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case sig := <-sigs:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func runWatch(ctx context.Context, opts *WatchOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	key := documentKey(path)

	if opts.Interval <= 0 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "interval must be positive", nil)
	}
	cfg, err := opts.Config()
	if err != nil {
		return err
	}

	watcher := dom.NewWatcher(cfg.WatcherOptions()...)
	defer watcher.Close()

	doc, err := loadDocument(opts.RootOptions, path, dom.WithWatcher(watcher))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDocument, "failed to load document", err)
	}
	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	printPass := func(report engine.PassReport) {
		if err := formatter.Success(newPassSummary(report)); err != nil {
			slog.Warn("pass not printed", "pass_seq", report.Seq, "error", err)
		}
	}
	anns, r, err := newReconciler(ctx, st, key, doc, printPass, engine.WithChangeSource(watcher))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to prepare reconciliation", err)
	}

	r.Attach()
	r.Enqueue(engine.ChangeMsg{Reason: engine.ChangeManual})

	fl := &follower{
		path:    path,
		key:     key,
		doc:     doc,
		store:   st,
		rec:     r,
		ids:     annotationIDs(anns),
		options: cfg.DocumentOptions(),
	}
	if fl.sum, err = fileFingerprint(path); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDocument, "failed to read document", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		fl.run(ctx, opts.Interval)
	}()

	slog.Info("watching document", "path", path, "annotations", len(anns), "interval", opts.Interval)
	err = r.Run(ctx)
	<-done
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}

// follower tracks the file behind a watched document and the annotations
// stored for it, feeding differences to the reconciler.
type follower struct {
	path    string
	key     string
	doc     *dom.Document
	store   *store.Store
	rec     *engine.Reconciler
	options []dom.Option

	sum string
	ids []string
}

func (f *follower) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.checkFile()
			f.checkAnnotations(ctx)
		}
	}
}

// checkFile reloads the document when the file content changed. The
// document's watcher turns the swap into a pass.
func (f *follower) checkFile() {
	sum, err := fileFingerprint(f.path)
	if err != nil {
		slog.Warn("document unreadable", "path", f.path, "error", err)
		return
	}
	if sum == f.sum {
		return
	}
	next, err := dom.Load(f.path, f.options...)
	if err != nil {
		// Likely a partial write; retry on the next tick.
		slog.Warn("document reload failed", "path", f.path, "error", err)
		return
	}
	f.sum = sum
	f.doc.Replace(next)
	slog.Debug("document reloaded", "path", f.path, "fingerprint", sum)
}

// checkAnnotations re-registers the configs when annotations were added
// or forgotten since the last check.
func (f *follower) checkAnnotations(ctx context.Context) {
	anns, err := f.store.ReadAnnotations(ctx, f.key)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("annotations unreadable", "document", f.key, "error", err)
		}
		return
	}
	ids := annotationIDs(anns)
	if slices.Equal(ids, f.ids) {
		return
	}
	f.ids = ids
	f.rec.Enqueue(engine.SetConfigsMsg{Configs: annotationConfigs(f.doc, anns)})
	f.rec.Enqueue(engine.ChangeMsg{Reason: engine.ChangeManual})
	slog.Debug("annotations changed", "document", f.key, "count", len(ids))
}

func annotationIDs(anns []store.Annotation) []string {
	ids := make([]string, len(anns))
	for i, a := range anns {
		ids[i] = a.ID
	}
	return ids
}

func fileFingerprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ir.Fingerprint(string(data)), nil
}
