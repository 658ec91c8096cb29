package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates predictable identifiers of the form
// "<prefix>-0001", "<prefix>-0002", ...
//
// It stands in for UUIDv7 generation in store tests so saved pipeline ids
// are stable across runs.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix becomes "test".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "test"
	}
	return &SequenceIDs{prefix: prefix}
}

// NewID returns the next identifier.
func (g *SequenceIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
