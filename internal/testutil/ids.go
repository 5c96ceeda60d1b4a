package testutil

import (
	"fmt"
	"sync/atomic"
)

// FixedIDGenerator returns predictable run IDs: "<prefix>-1", "<prefix>-2", ...
//
// Implements history.IDGenerator. Safe for concurrent use.
type FixedIDGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewFixedIDGenerator creates a generator. An empty prefix means "run".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next ID in sequence.
func (g *FixedIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
