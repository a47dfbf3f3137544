package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/reanchor/internal/anchor"
	"github.com/roach88/reanchor/internal/dom"
	"github.com/roach88/reanchor/internal/engine"
	"github.com/roach88/reanchor/internal/store"
	"github.com/roach88/reanchor/internal/testutil"
)

// Harness drives one scenario through the engine's Run loop.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	doc      *dom.Document
	watcher  *dom.Watcher
	rec      *engine.Reconciler
	logger   *slog.Logger

	// all holds every declared config by id; active is the registered set.
	all    map[string]engine.Config
	active []engine.Config

	mu     sync.Mutex
	passes []TraceEvent
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database. Execution flow:
//  1. Store every config as an annotation, with its id
//  2. Parse the document and start the Run loop
//  3. Register all configs, then execute each step and wait for the loop
//  4. Evaluate assertions against the trace, tagging and audit tables
//
// A returned error means the scenario could not be executed; failed
// expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()
	defer h.watcher.Close()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- h.rec.Run(loopCtx)
	}()

	result := NewResult()
	runErr := h.execute(scenario.Steps, result)

	// Capture the tagging before shutdown releases every artifact.
	if runErr == nil {
		result.Tagged = h.doc.Tagged()
	}
	h.rec.Stop()
	if err := <-loopDone; err != nil {
		return nil, fmt.Errorf("run loop: %w", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario) (*Harness, error) {
	ids := make([]string, len(scenario.Configs))
	for i, c := range scenario.Configs {
		ids[i] = c.ID
	}
	st, err := store.Open(store.MemoryPath, store.WithIDGenerator(testutil.NewFixedIDGenerator(ids...)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		store:    st,
		watcher:  dom.NewWatcher(dom.WithDebounce(0), dom.WithPollInterval(0)),
		logger:   testutil.DiscardLogger(),
		all:      make(map[string]engine.Config, len(scenario.Configs)),
	}

	h.doc, err = h.parse(scenario.Document)
	if err != nil {
		h.close()
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	if err := h.storeConfigs(ctx); err != nil {
		h.close()
		return nil, err
	}

	recorder := store.NewPassRecorder(ctx, st, scenario.Name, nil)
	h.rec = engine.New(h.doc,
		engine.WithChangeSource(h.watcher),
		engine.WithExclusion(h.doc.IsExcluded),
		engine.WithClock(engine.NewClock()),
		engine.WithObserver(engine.PassObserverFunc(func(report engine.PassReport) {
			recorder.PassCompleted(report)
			h.recordPass(report)
		})),
	)
	h.rec.Attach()
	return h, nil
}

func (h *Harness) close() {
	h.watcher.Close()
	h.store.Close()
}

func (h *Harness) parse(document string) (*dom.Document, error) {
	return dom.ParseString(document, dom.WithExclude(h.scenario.Exclude...), dom.WithWatcher(h.watcher))
}

// storeConfigs writes each config as an annotation and builds the engine
// configs from what the store returns, as the CLI does.
func (h *Harness) storeConfigs(ctx context.Context) error {
	for i, c := range h.scenario.Configs {
		sel, err := c.Selector()
		if err != nil {
			return fmt.Errorf("config %d: %w", i, err)
		}
		a, _, err := h.store.WriteAnnotation(ctx, h.scenario.Name, sel, c.Note)
		if err != nil {
			return fmt.Errorf("config %d: failed to store annotation: %w", i, err)
		}
		if a.ID != c.ID {
			return fmt.Errorf("config %d: stored as %q, want %q", i, a.ID, c.ID)
		}
	}

	anns, err := h.store.ReadAnnotations(ctx, h.scenario.Name)
	if err != nil {
		return fmt.Errorf("failed to read annotations: %w", err)
	}
	for _, a := range anns {
		cfg := engine.Config{ID: a.ID, Selector: a.Selector, Inject: h.doc.Inject(a.ID)}
		h.all[a.ID] = cfg
		h.active = append(h.active, cfg)
	}
	return nil
}

// recordPass runs on the Run loop goroutine, after the pass.
func (h *Harness) recordPass(report engine.PassReport) {
	event := TraceEvent{
		Seq:        report.Seq,
		Reason:     report.Reason.String(),
		Injected:   report.Injected,
		Released:   report.Released,
		Kept:       report.Kept,
		Failed:     report.Failed,
		Unanchored: report.Unanchored,
		Anchors:    make(map[string][]int),
	}
	idx := h.rec.Index()
	for _, c := range h.rec.Configs() {
		offsets := []int{}
		for _, a := range h.rec.Artifacts(c.ID) {
			start, _, err := anchor.SpanOffsets(idx, a.Span)
			if err != nil {
				h.logger.Warn("artifact span not in index", "config_id", c.ID, "error", err)
				continue
			}
			offsets = append(offsets, start)
		}
		sort.Ints(offsets)
		event.Anchors[c.ID] = offsets
	}

	h.mu.Lock()
	h.passes = append(h.passes, event)
	h.mu.Unlock()
}

// execute runs every step, waiting for the Run loop after each one.
func (h *Harness) execute(steps []Step, result *Result) error {
	if err := h.register(h.active); err != nil {
		return fmt.Errorf("failed to register configs: %w", err)
	}

	for i, step := range steps {
		before := h.passCount()
		if err := h.apply(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		if err := h.settle(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}

		produced := h.passesSince(before)
		for _, e := range produced {
			result.AddPass(e)
		}
		if step.Expect != nil {
			h.checkExpect(i, step, produced, result)
		}

		h.logger.Info("scenario step completed",
			"step", i,
			"op", step.Op,
			"passes", len(produced),
		)
	}
	return nil
}

func (h *Harness) apply(step Step) error {
	switch step.Op {
	case OpReconcile:
		h.rec.Enqueue(engine.ChangeMsg{Reason: engine.ChangeManual})
		return nil

	case OpSetText:
		leaf, err := h.leaf(step.Leaf)
		if err != nil {
			return err
		}
		return h.doc.SetText(leaf, step.Text)

	case OpInsertBefore:
		leaf, err := h.leaf(step.Leaf)
		if err != nil {
			return err
		}
		_, err = h.doc.InsertTextBefore(leaf, step.Text)
		return err

	case OpReplace:
		next, err := h.parse(step.Document)
		if err != nil {
			return fmt.Errorf("failed to parse replacement: %w", err)
		}
		h.doc.Replace(next)
		return nil

	case OpConfigs:
		configs := make([]engine.Config, 0, len(step.Configs))
		for _, id := range step.Configs {
			configs = append(configs, h.all[id])
		}
		h.active = configs
		return h.register(configs)

	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) leaf(i int) (*dom.Leaf, error) {
	leaves := h.doc.Leaves()
	if i >= len(leaves) {
		return nil, fmt.Errorf("leaf %d out of range (document has %d)", i, len(leaves))
	}
	return leaves[i], nil
}

// register submits configs through the Run loop and waits for the result.
func (h *Harness) register(configs []engine.Config) error {
	done := make(chan error, 1)
	if !h.rec.Enqueue(engine.SetConfigsMsg{Configs: configs, Done: done}) {
		return errors.New("run loop stopped")
	}
	return <-done
}

// settle waits until every message queued so far has been processed. The
// queue is FIFO, so re-registering the active set acts as a barrier.
func (h *Harness) settle() error {
	return h.register(h.active)
}

func (h *Harness) passCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.passes)
}

func (h *Harness) passesSince(n int) []TraceEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]TraceEvent(nil), h.passes[n:]...)
}

// checkExpect compares a step's expect clause with the pass it caused.
func (h *Harness) checkExpect(index int, step Step, produced []TraceEvent, result *Result) {
	if len(produced) != 1 {
		result.AddError(fmt.Sprintf("step %d (%s): expected exactly one pass, got %d", index, step.Op, len(produced)))
		return
	}
	counts := produced[0].counts()
	keys := make([]string, 0, len(step.Expect))
	for k := range step.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] != step.Expect[k] {
			result.AddError(fmt.Sprintf("step %d (%s): %s = %d, want %d", index, step.Op, k, counts[k], step.Expect[k]))
		}
	}
}
