package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator hands out a fixed list of ids in order.
//
// Once the list is exhausted it falls back to "id-N", where N counts every
// id handed out so far. The store uses it so scenario and test annotations
// get predictable ids.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedIDGenerator struct {
	mu   sync.Mutex
	ids  []string
	next int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: append([]string(nil), ids...)}
}

// Generate returns the next id.
//
// Implements store.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	if g.next <= len(g.ids) {
		return g.ids[g.next-1]
	}
	return fmt.Sprintf("id-%d", g.next)
}

// Issued returns how many ids have been handed out.
func (g *FixedIDGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
