package dom

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/roach88/reanchor/internal/anchor"
	"github.com/roach88/reanchor/internal/engine"
	"github.com/roach88/reanchor/internal/ir"
)

// DefaultArtifactAttr is the attribute that carries injected artifact ids.
const DefaultArtifactAttr = "data-reanchor"

// DefaultSkip lists elements whose text is never indexed.
var DefaultSkip = []string{"script", "style", "head"}

// Document is a parsed document exposed as engine leaves.
//
// Thread-safety: all methods are safe for concurrent use. Change
// notifications are delivered after the document lock is released.
type Document struct {
	mu      sync.RWMutex
	root    *xmlquery.Node
	leaves  map[*xmlquery.Node]*Leaf
	version int64

	skip         map[string]bool
	exclude      []exclusion
	artifactAttr string

	watcher *Watcher
}

type exclusion struct {
	source string
	expr   *xpath.Expr
}

// Option configures a Document.
type Option func(*Document) error

// WithSkip replaces the set of elements whose text is not indexed.
func WithSkip(tags ...string) Option {
	return func(d *Document) error {
		d.skip = make(map[string]bool, len(tags))
		for _, t := range tags {
			d.skip[strings.ToLower(t)] = true
		}
		return nil
	}
}

// WithExclude adds exclusion zones: elements selected by any of the XPath
// expressions never receive artifacts.
func WithExclude(exprs ...string) Option {
	return func(d *Document) error {
		for _, src := range exprs {
			expr, err := xpath.Compile(src)
			if err != nil {
				return fmt.Errorf("invalid exclusion xpath %q: %w", src, err)
			}
			d.exclude = append(d.exclude, exclusion{source: src, expr: expr})
		}
		return nil
	}
}

// WithArtifactAttr sets the attribute that carries artifact ids.
func WithArtifactAttr(name string) Option {
	return func(d *Document) error {
		if name == "" {
			return fmt.Errorf("artifact attribute name is empty")
		}
		d.artifactAttr = name
		return nil
	}
}

// WithWatcher routes mutation notifications to w.
func WithWatcher(w *Watcher) Option {
	return func(d *Document) error {
		d.watcher = w
		return nil
	}
}

// Parse reads an XML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	d := &Document{
		root:         root,
		leaves:       make(map[*xmlquery.Node]*Leaf),
		artifactAttr: DefaultArtifactAttr,
	}
	if err := WithSkip(DefaultSkip...)(d); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ParseString parses an in-memory document.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Load reads a document from disk.
func Load(path string, opts ...Option) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	d, err := Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Leaves returns the indexable text leaves in document order.
//
// A Leaf keeps its identity for as long as its node stays in the tree, so
// spans from earlier passes compare equal when the node is untouched.
func (d *Document) Leaves() []*Leaf {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leavesLocked()
}

func (d *Document) leavesLocked() []*Leaf {
	var out []*Leaf
	live := make(map[*xmlquery.Node]*Leaf, len(d.leaves))

	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case xmlquery.ElementNode:
				if !d.skip[strings.ToLower(c.Data)] {
					walk(c)
				}
			case xmlquery.TextNode, xmlquery.CharDataNode:
				l, ok := d.leaves[c]
				if !ok {
					l = &Leaf{node: c, doc: d}
				}
				live[c] = l
				out = append(out, l)
			}
		}
	}
	walk(d.root)

	d.leaves = live
	return out
}

// BuildIndex implements engine.Document.
func (d *Document) BuildIndex() *ir.TextIndex {
	leaves := d.Leaves()
	ls := make([]ir.Leaf, len(leaves))
	for i, l := range leaves {
		ls[i] = l
	}
	return anchor.BuildIndex(ls)
}

// IsExcluded reports whether either endpoint of span lies inside an
// exclusion zone. It has the engine.ExclusionFunc signature.
func (d *Document) IsExcluded(span ir.Span) bool {
	if len(d.exclude) == 0 {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	zones := make(map[*xmlquery.Node]bool)
	for _, ex := range d.exclude {
		for _, n := range xmlquery.QuerySelectorAll(d.root, ex.expr) {
			zones[n] = true
		}
	}
	return d.inZone(span.Start.Leaf, zones) || d.inZone(span.End.Leaf, zones)
}

func (d *Document) inZone(l ir.Leaf, zones map[*xmlquery.Node]bool) bool {
	leaf, ok := l.(*Leaf)
	if !ok || leaf.doc != d {
		return false
	}
	for n := leaf.node.Parent; n != nil; n = n.Parent {
		if zones[n] {
			return true
		}
	}
	return false
}

// Version counts mutations made through the Document API.
func (d *Document) Version() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// ArtifactAttr returns the attribute that carries artifact ids.
func (d *Document) ArtifactAttr() string {
	return d.artifactAttr
}

// OutputXML serializes the document, including injected artifact ids.
func (d *Document) OutputXML() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.OutputXML(true)
}

// Tagged returns, per artifact id, the names of the elements carrying it
// in document order.
func (d *Document) Tagged() map[string][]string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string][]string)
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			for _, id := range strings.Fields(c.SelectAttr(d.artifactAttr)) {
				out[id] = append(out[id], c.Data)
			}
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// changed notifies the watcher. Callers must not hold d.mu.
func (d *Document) changed(reason engine.ChangeReason) {
	if d.watcher != nil {
		d.watcher.Notify(reason)
	}
	slog.Debug("document changed", "reason", reason)
}
