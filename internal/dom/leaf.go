package dom

import "github.com/antchfx/xmlquery"

// Leaf is a text or CDATA node of a Document. It implements ir.Leaf.
type Leaf struct {
	node *xmlquery.Node
	doc  *Document
}

// Text returns the node's current character data.
func (l *Leaf) Text() string {
	l.doc.mu.RLock()
	defer l.doc.mu.RUnlock()
	return l.node.Data
}

// Element returns the name of the enclosing element, or "" at the root.
func (l *Leaf) Element() string {
	l.doc.mu.RLock()
	defer l.doc.mu.RUnlock()
	if p := l.node.Parent; p != nil && p.Type == xmlquery.ElementNode {
		return p.Data
	}
	return ""
}

// attached reports whether the node is still part of its document.
// Callers must hold l.doc.mu.
func (l *Leaf) attached() bool {
	for n := l.node; n != nil; n = n.Parent {
		if n == l.doc.root {
			return true
		}
	}
	return false
}
