package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/reanchor/internal/anchor"
	"github.com/roach88/reanchor/internal/ir"
)

// Reconciler is the per-document reconciliation context.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - SetConfigs/Reconcile/Detach: only from the goroutine that owns the
//     Reconciler (the Run goroutine when Run is used)
//
// INVARIANTS:
//   - Config IDs are unique
//   - Every Artifact is released at most once
//   - At most one pass is in flight
type Reconciler struct {
	doc      Document
	changes  ChangeSource
	exclude  ExclusionFunc
	observer PassObserver
	clock    *Clock
	queue    *messageQueue

	configs   []Config
	artifacts map[string][]*Artifact
	index     *ir.TextIndex

	inPass      bool
	unsubscribe func()
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithChangeSource sets the source of change notifications. The source is
// paused for the duration of every pass and every release.
func WithChangeSource(cs ChangeSource) Option {
	return func(r *Reconciler) {
		r.changes = cs
	}
}

// WithExclusion sets the exclusion-zone predicate.
func WithExclusion(fn ExclusionFunc) Option {
	return func(r *Reconciler) {
		r.exclude = fn
	}
}

// WithObserver registers a pass observer.
func WithObserver(o PassObserver) Option {
	return func(r *Reconciler) {
		r.observer = o
	}
}

// WithClock sets the pass clock, e.g. to resume numbering after a restart.
func WithClock(c *Clock) Option {
	return func(r *Reconciler) {
		r.clock = c
	}
}

// New creates a Reconciler for doc.
func New(doc Document, opts ...Option) *Reconciler {
	r := &Reconciler{
		doc:       doc,
		clock:     NewClock(),
		queue:     newMessageQueue(),
		artifacts: make(map[string][]*Artifact),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach subscribes to the change source; each notification is enqueued as
// a ChangeMsg for Run. Attaching twice is a no-op.
func (r *Reconciler) Attach() {
	if r.changes == nil || r.unsubscribe != nil {
		return
	}
	r.unsubscribe = r.changes.Subscribe(func(reason ChangeReason) {
		r.Enqueue(ChangeMsg{Reason: reason})
	})
	slog.Debug("reconciler attached")
}

// Detach unsubscribes from the change source and releases every artifact.
// The Reconciler may be reused after SetConfigs.
func (r *Reconciler) Detach() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	// SetConfigs(nil) cannot fail.
	_ = r.SetConfigs(nil)
	r.index = nil
	slog.Debug("reconciler detached")
}

// Enqueue submits a message to the Run loop.
// Returns false once the loop has stopped.
func (r *Reconciler) Enqueue(m Message) bool {
	return r.queue.Enqueue(m)
}

// Run processes queued messages until ctx is cancelled or a DetachMsg is
// processed. On cancellation the Reconciler is detached before returning.
//
// ERROR HANDLING: failures inside a pass are isolated and logged; they
// never stop the loop.
func (r *Reconciler) Run(ctx context.Context) error {
	slog.Info("reconciler starting")

	for {
		msg, ok := r.queue.TryDequeue()
		if ok {
			if stop := r.process(msg); stop {
				r.queue.Close()
				slog.Info("reconciler stopping: detached")
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("reconciler stopping: context cancelled")
			r.queue.Close()
			r.Detach()
			return ctx.Err()

		case <-r.queue.Wait():
			if r.queue.Closed() && r.queue.Len() == 0 {
				slog.Info("reconciler stopping: queue closed")
				r.Detach()
				return nil
			}
		}
	}
}

// Stop closes the message queue; Run detaches and returns.
func (r *Reconciler) Stop() {
	r.queue.Close()
}

// process handles one message and reports whether the loop must stop.
func (r *Reconciler) process(msg Message) bool {
	switch m := msg.(type) {
	case SetConfigsMsg:
		err := r.SetConfigs(m.Configs)
		if err != nil {
			slog.Error("set configs failed", "error", err)
		}
		if m.Done != nil {
			m.Done <- err
		}
		return false

	case ChangeMsg:
		if n := r.queue.DropLeadingChanges(); n > 0 {
			slog.Debug("coalesced change notifications", "dropped", n)
		}
		if _, err := r.Reconcile(m.Reason); err != nil {
			slog.Error("reconciliation pass failed", "error", err)
		}
		return false

	case DetachMsg:
		r.Detach()
		return true

	default:
		panic(fmt.Sprintf("engine: unknown message type %T", msg))
	}
}

// SetConfigs replaces the registered Config set.
//
// Artifacts of Configs whose ID is absent from configs are released
// immediately. Artifacts of retained IDs carry over unvalidated; the next
// pass re-checks them. On error the previous state is unchanged. A call
// made from inside a pass returns ErrReentrantPass.
func (r *Reconciler) SetConfigs(configs []Config) error {
	if r.inPass {
		return ErrReentrantPass
	}
	seen := make(map[string]bool, len(configs))
	for _, c := range configs {
		if err := validateConfig(c); err != nil {
			return err
		}
		if seen[c.ID] {
			return &Error{Code: ErrCodeDuplicateConfig, Message: "duplicate config id", ConfigID: c.ID}
		}
		seen[c.ID] = true
	}

	var retired []*Artifact
	for _, old := range r.configs {
		if seen[old.ID] {
			continue
		}
		retired = append(retired, r.artifacts[old.ID]...)
		delete(r.artifacts, old.ID)
	}

	r.configs = make([]Config, len(configs))
	copy(r.configs, configs)

	if len(retired) > 0 {
		r.quiesce(func() {
			for _, a := range retired {
				release(a)
			}
		})
		slog.Info("configs removed", "released", len(retired))
	}
	return nil
}

func validateConfig(c Config) error {
	if c.ID == "" {
		return &Error{Code: ErrCodeInvalidConfig, Message: "config id is required"}
	}
	if c.Inject == nil {
		return &Error{Code: ErrCodeInvalidConfig, Message: "inject callback is required", ConfigID: c.ID}
	}
	if err := c.Selector.Validate(); err != nil {
		return &Error{Code: ErrCodeMalformedSelector, Message: "invalid selector", ConfigID: c.ID, Err: err}
	}
	return nil
}

// Reconcile runs one reconciliation pass.
//
// The change source is paused for the whole pass, including every inject
// and release, and resumed afterwards. Calling Reconcile from inside a pass
// returns ErrReentrantPass without doing anything.
func (r *Reconciler) Reconcile(reason ChangeReason) (PassReport, error) {
	if r.inPass {
		return PassReport{}, ErrReentrantPass
	}
	r.inPass = true
	defer func() { r.inPass = false }()

	var report PassReport
	r.quiesce(func() {
		report = r.pass(reason)
	})

	slog.Info("pass completed",
		"pass_seq", report.Seq,
		"reason", report.Reason,
		"configs", report.Configs,
		"injected", report.Injected,
		"released", report.Released,
		"kept", report.Kept,
		"failed", report.Failed,
		"unanchored", report.Unanchored,
	)

	if r.observer != nil {
		r.observer.PassCompleted(report)
	}
	return report, nil
}

// pass rebuilds the index and reconciles every Config in registration order.
func (r *Reconciler) pass(reason ChangeReason) PassReport {
	seq := r.clock.Next()
	idx := r.doc.BuildIndex()
	r.index = idx

	report := PassReport{
		Seq:         seq,
		Reason:      reason,
		Fingerprint: ir.Fingerprint(idx.Text),
		Configs:     len(r.configs),
	}

	for _, c := range r.configs {
		r.reconcileConfig(idx, c, &report)
	}
	return report
}

// reconcileConfig diffs one Config's tie set against its live artifacts.
func (r *Reconciler) reconcileConfig(idx *ir.TextIndex, c Config, report *PassReport) {
	matches, err := anchor.ResolveAll(idx, c.Selector)
	if err != nil {
		rerr := newResolveError(c.ID, report.Seq, err)
		slog.Error("config skipped",
			"config_id", c.ID,
			"pass_seq", report.Seq,
			"code", rerr.Code,
			"error", err,
		)
		report.Errors = append(report.Errors, rerr)
		return
	}

	candidates := matches[:0:0]
	for _, m := range matches {
		if r.exclude != nil && r.exclude(m.Span) {
			continue
		}
		candidates = append(candidates, m)
	}
	ties := anchor.MinDistance(candidates)
	if len(ties) == 0 {
		report.Unanchored++
	}

	slog.Debug("config resolved",
		"config_id", c.ID,
		"pass_seq", report.Seq,
		"occurrences", len(matches),
		"excluded", len(matches)-len(candidates),
		"ties", len(ties),
	)

	old := r.artifacts[c.ID]
	next := make([]*Artifact, 0, len(ties))
	claimed := make([]bool, len(old))

	// Spans present in both sets keep their artifact untouched.
	var fresh []ir.Span
	for _, m := range ties {
		found := false
		for i, a := range old {
			if !claimed[i] && a.Span.Equal(m.Span) {
				claimed[i] = true
				next = append(next, a)
				found = true
				break
			}
		}
		if found {
			report.Kept++
			continue
		}
		fresh = append(fresh, m.Span)
	}

	for i, a := range old {
		if !claimed[i] {
			release(a)
			report.Released++
		}
	}

	for _, span := range fresh {
		a, err := inject(c, span)
		if err != nil {
			ierr := newInjectError(c.ID, report.Seq, err)
			slog.Warn("inject failed",
				"config_id", c.ID,
				"pass_seq", report.Seq,
				"error", err,
			)
			report.Errors = append(report.Errors, ierr)
			report.Failed++
			continue
		}
		next = append(next, a)
		report.Injected++
	}

	if len(next) == 0 {
		delete(r.artifacts, c.ID)
		return
	}
	r.artifacts[c.ID] = next
}

// inject calls the Config's inject callback, converting panics and nil
// artifacts into errors.
func inject(c Config, span ir.Span) (a *Artifact, err error) {
	defer func() {
		if p := recover(); p != nil {
			a, err = nil, fmt.Errorf("inject panicked: %v", p)
		}
	}()

	a, err = c.Inject(span)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("inject returned no artifact")
	}
	a.Span = span
	a.cleanup = c.Cleanup
	return a, nil
}

// release retires an artifact exactly once. Panics in host callbacks are
// logged and swallowed so one artifact cannot break the pass.
func release(a *Artifact) {
	if a == nil || a.released {
		return
	}
	a.released = true

	defer func() {
		if p := recover(); p != nil {
			slog.Error("artifact release panicked", "panic", p)
		}
	}()
	if a.cleanup != nil {
		a.cleanup(a)
	}
	if a.Release != nil {
		a.Release()
	}
}

// quiesce runs fn with change notifications paused.
func (r *Reconciler) quiesce(fn func()) {
	if r.changes != nil {
		r.changes.Pause()
		defer r.changes.Resume()
	}
	fn()
}

// Configs returns a copy of the registered Configs in registration order.
func (r *Reconciler) Configs() []Config {
	out := make([]Config, len(r.configs))
	copy(out, r.configs)
	return out
}

// Artifacts returns a copy of the live artifacts for a Config.
func (r *Reconciler) Artifacts(id string) []*Artifact {
	out := make([]*Artifact, len(r.artifacts[id]))
	copy(out, r.artifacts[id])
	return out
}

// ArtifactCount returns the number of live artifacts across all Configs.
func (r *Reconciler) ArtifactCount() int {
	n := 0
	for _, as := range r.artifacts {
		n += len(as)
	}
	return n
}

// Index returns the index built by the most recent pass, or nil.
func (r *Reconciler) Index() *ir.TextIndex {
	return r.index
}

// Clock returns the pass clock.
func (r *Reconciler) Clock() *Clock {
	return r.clock
}

// QueueLen returns the number of pending messages.
func (r *Reconciler) QueueLen() int {
	return r.queue.Len()
}
