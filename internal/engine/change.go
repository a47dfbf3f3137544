package engine

import "github.com/roach88/reanchor/internal/ir"

// Document is the host document as the engine sees it.
type Document interface {
	// BuildIndex projects the current document into a fresh TextIndex.
	// It must be callable at any time and idempotent.
	BuildIndex() *ir.TextIndex
}

// ChangeSource delivers debounced change notifications from the host.
//
// While paused, the source must not deliver notifications, and changes
// observed during the pause must not be delivered after Resume: they are
// the engine's own inject/release writes. Pause/Resume calls nest.
type ChangeSource interface {
	Subscribe(fn func(ChangeReason)) (unsubscribe func())
	Pause()
	Resume()
}

// ExclusionFunc reports whether a span lies inside a zone (editable
// regions, for instance) where artifacts must never be injected.
type ExclusionFunc func(ir.Span) bool

// Config registers one selector with the engine.
type Config struct {
	// ID identifies the Config. Only equality is used.
	ID string

	// Selector is resolved against the document on every pass.
	Selector ir.Selector

	// Inject materializes an artifact for a span.
	Inject func(ir.Span) (*Artifact, error)

	// Cleanup, if set, is called before an artifact is released.
	Cleanup func(*Artifact)
}

// Artifact is the engine's handle on one injected artifact.
type Artifact struct {
	// Span is the span the artifact was injected for. The engine sets it.
	Span ir.Span

	// Release retires the artifact. The engine calls it exactly once.
	Release func()

	// Value carries host data (e.g. a DOM node); the engine ignores it.
	Value any

	cleanup  func(*Artifact)
	released bool
}

// Released reports whether the engine has retired the artifact.
func (a *Artifact) Released() bool {
	return a.released
}
