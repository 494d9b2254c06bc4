package llm

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"pearl/internal/logging"
)

// Gate bounds the number of concurrent in-flight reasoning calls across all
// jobs. Capacity is fixed at construction. semaphore.Weighted grants waiting
// callers in arrival order, so long-waiting jobs are never starved.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
	client   Client
	logger   logging.Logger
}

// NewGate wraps client with a permit pool of the given capacity.
func NewGate(capacity int, client Client, logger logging.Logger) (*Gate, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("llm: gate capacity must be positive, got %d", capacity)
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
		client:   client,
		logger:   logging.OrNop(logger),
	}, nil
}

// Capacity returns the fixed permit count.
func (g *Gate) Capacity() int {
	return g.capacity
}

// InFlight returns the number of permits currently held.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Acquire blocks until a permit is available or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire reasoning permit: %w", err)
	}
	g.inFlight.Add(1)
	return nil
}

// Release returns a permit to the pool.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// Invoke acquires a permit, delegates to the underlying client, and releases
// the permit on every exit path including timeout and cancellation.
func (g *Gate) Invoke(ctx context.Context, prompt string, contextText string) (string, error) {
	if err := g.Acquire(ctx); err != nil {
		return "", err
	}
	defer g.Release()

	return g.client.Complete(ctx, prompt, contextText)
}

// Model returns the wrapped client's model name.
func (g *Gate) Model() string {
	return g.client.Model()
}
