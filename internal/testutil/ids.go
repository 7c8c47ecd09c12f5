package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/collabflow/internal/workflow"
)

// SequentialIDs generates predictable workflow ids for tests:
// "<kind>_<subject>_0001", "<kind>_<subject>_0002", ...
//
// The counter is shared across kinds so ids stay unique within a run.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	mu sync.Mutex
	n  int
}

// NewSequentialIDs creates a generator whose first id ends in 0001.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NewID implements workflow.IDGenerator.
func (g *SequentialIDs) NewID(kind, subject string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return workflow.JoinID(kind, subject, fmt.Sprintf("%04d", g.n))
}

// Reset restarts the sequence at 0001.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
