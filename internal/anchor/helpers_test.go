package anchor

import "github.com/roach88/reanchor/internal/ir"

type leaf struct{ text string }

func (l *leaf) Text() string { return l.text }

func leaves(texts ...string) []ir.Leaf {
	out := make([]ir.Leaf, len(texts))
	for i, t := range texts {
		out[i] = &leaf{text: t}
	}
	return out
}
