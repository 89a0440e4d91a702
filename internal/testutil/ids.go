package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDGenerator hands out "<prefix>-0001", "<prefix>-0002", ...
//
// The same test run with a fresh generator produces byte-identical IDs,
// which keeps journal rows and golden output stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequenceIDGenerator creates a generator. An empty prefix becomes "id".
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate implements engine.IDGenerator.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}

// Reset restarts the sequence at 1.
func (g *SequenceIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedIDGenerator returns the same ID every time. Use it for session IDs.
type FixedIDGenerator string

// Generate implements engine.IDGenerator.
func (g FixedIDGenerator) Generate() string { return string(g) }
