package dom

import (
	"errors"
	"fmt"

	"github.com/antchfx/xmlquery"

	"github.com/roach88/reanchor/internal/engine"
)

// ErrDetachedLeaf is returned when a Leaf no longer belongs to its Document.
var ErrDetachedLeaf = errors.New("leaf is not attached to the document")

// SetText replaces a leaf's character data.
func (d *Document) SetText(l *Leaf, text string) error {
	d.mu.Lock()
	if err := d.checkLeaf(l); err != nil {
		d.mu.Unlock()
		return err
	}
	l.node.Data = text
	d.version++
	d.mu.Unlock()

	d.changed(engine.ChangeMutation)
	return nil
}

// InsertTextBefore inserts a new text node immediately before l and
// returns it as a Leaf.
func (d *Document) InsertTextBefore(l *Leaf, text string) (*Leaf, error) {
	d.mu.Lock()
	if err := d.checkLeaf(l); err != nil {
		d.mu.Unlock()
		return nil, err
	}

	n := &xmlquery.Node{Type: xmlquery.TextNode, Data: text}
	at := l.node
	n.Parent = at.Parent
	n.PrevSibling = at.PrevSibling
	n.NextSibling = at
	if at.PrevSibling != nil {
		at.PrevSibling.NextSibling = n
	} else if at.Parent != nil {
		at.Parent.FirstChild = n
	}
	at.PrevSibling = n

	added := &Leaf{node: n, doc: d}
	d.leaves[n] = added
	d.version++
	d.mu.Unlock()

	d.changed(engine.ChangeMutation)
	return added, nil
}

// Replace swaps in the content of other, as when a page re-renders. Every
// existing Leaf becomes detached; other must not be used afterwards.
func (d *Document) Replace(other *Document) {
	other.mu.Lock()
	root := other.root
	other.root = &xmlquery.Node{Type: xmlquery.DocumentNode}
	other.mu.Unlock()

	d.mu.Lock()
	d.root = root
	d.leaves = make(map[*xmlquery.Node]*Leaf)
	d.version++
	d.mu.Unlock()

	d.changed(engine.ChangeMutation)
}

// checkLeaf validates that l belongs to d. Callers must hold d.mu.
func (d *Document) checkLeaf(l *Leaf) error {
	if l == nil || l.doc != d {
		return fmt.Errorf("foreign leaf: %w", ErrDetachedLeaf)
	}
	if !l.attached() {
		return ErrDetachedLeaf
	}
	return nil
}
