package memory

import "sync"

// WriteGate serializes mutating access to the shared memory store. Concurrent
// jobs must never interleave writes, so at most one write is in flight
// process-wide. Reads are not routed through the gate; see Manager.Recall.
type WriteGate struct {
	mu sync.Mutex
}

// WithExclusiveWrite runs fn while holding the process-wide write lock. The
// lock is released on every exit path including panics.
func (g *WriteGate) WithExclusiveWrite(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}
