package dom

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/roach88/reanchor/internal/engine"
	"github.com/roach88/reanchor/internal/ir"
)

// Inject returns an inject callback that tags the element containing the
// start of each span with id. Releasing the artifact removes one id token.
func (d *Document) Inject(id string) func(ir.Span) (*engine.Artifact, error) {
	return func(span ir.Span) (*engine.Artifact, error) {
		leaf, ok := span.Start.Leaf.(*Leaf)
		if !ok || leaf.doc != d {
			return nil, fmt.Errorf("span does not start in this document")
		}

		d.mu.Lock()
		if !leaf.attached() {
			d.mu.Unlock()
			return nil, ErrDetachedLeaf
		}
		el := leaf.node.Parent
		if el == nil || el.Type != xmlquery.ElementNode {
			d.mu.Unlock()
			return nil, fmt.Errorf("leaf has no enclosing element")
		}
		addToken(el, d.artifactAttr, id)
		d.version++
		d.mu.Unlock()
		d.changed(engine.ChangeMutation)

		return &engine.Artifact{
			Value: el,
			Release: func() {
				d.mu.Lock()
				removeToken(el, d.artifactAttr, id)
				d.version++
				d.mu.Unlock()
				d.changed(engine.ChangeMutation)
			},
		}, nil
	}
}

func addToken(n *xmlquery.Node, attr, token string) {
	for i := range n.Attr {
		if n.Attr[i].Name.Space == "" && n.Attr[i].Name.Local == attr {
			n.Attr[i].Value = strings.TrimSpace(n.Attr[i].Value + " " + token)
			return
		}
	}
	n.Attr = append(n.Attr, xmlquery.Attr{Name: xml.Name{Local: attr}, Value: token})
}

// removeToken drops one occurrence of token, and the attribute once empty.
func removeToken(n *xmlquery.Node, attr, token string) {
	for i := range n.Attr {
		if n.Attr[i].Name.Space != "" || n.Attr[i].Name.Local != attr {
			continue
		}
		fields := strings.Fields(n.Attr[i].Value)
		for j, f := range fields {
			if f == token {
				fields = append(fields[:j], fields[j+1:]...)
				break
			}
		}
		if len(fields) == 0 {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
		n.Attr[i].Value = strings.Join(fields, " ")
		return
	}
}
