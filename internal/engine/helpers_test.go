package engine

import (
	"sync"

	"github.com/roach88/reanchor/internal/anchor"
	"github.com/roach88/reanchor/internal/ir"
)

type leaf struct{ text string }

func (l *leaf) Text() string { return l.text }

// fakeDoc is an in-memory Document whose leaves tests mutate directly.
type fakeDoc struct {
	leaves []*leaf
	builds int
}

func newFakeDoc(texts ...string) *fakeDoc {
	d := &fakeDoc{}
	for _, t := range texts {
		d.leaves = append(d.leaves, &leaf{text: t})
	}
	return d
}

func (d *fakeDoc) BuildIndex() *ir.TextIndex {
	d.builds++
	ls := make([]ir.Leaf, len(d.leaves))
	for i, l := range d.leaves {
		ls[i] = l
	}
	return anchor.BuildIndex(ls)
}

// fakeChanges records Pause/Resume calls and lets tests fire notifications.
type fakeChanges struct {
	mu       sync.Mutex
	fn       func(ChangeReason)
	depth    int
	pauses   int
	resumes  int
	unsubbed bool
}

func (c *fakeChanges) Subscribe(fn func(ChangeReason)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.fn = nil
		c.unsubbed = true
	}
}

func (c *fakeChanges) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depth++
	c.pauses++
}

func (c *fakeChanges) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.depth--
	c.resumes++
}

func (c *fakeChanges) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth > 0
}

func (c *fakeChanges) Fire(reason ChangeReason) {
	c.mu.Lock()
	fn := c.fn
	paused := c.depth > 0
	c.mu.Unlock()
	if fn != nil && !paused {
		fn(reason)
	}
}

// recorder builds Configs whose artifacts log inject and release calls.
type recorder struct {
	mu       sync.Mutex
	injected []ir.Span
	released []ir.Span
	releases map[*Artifact]int
}

func newRecorder() *recorder {
	return &recorder{releases: make(map[*Artifact]int)}
}

func (r *recorder) config(id string, sel ir.Selector) Config {
	return Config{
		ID:       id,
		Selector: sel,
		Inject: func(span ir.Span) (*Artifact, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.injected = append(r.injected, span)
			a := &Artifact{Value: id}
			a.Release = func() {
				r.mu.Lock()
				defer r.mu.Unlock()
				r.released = append(r.released, a.Span)
				r.releases[a]++
			}
			return a, nil
		},
	}
}

func (r *recorder) counts() (injected, released int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.injected), len(r.released)
}
