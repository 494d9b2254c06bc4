package memory

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"pearl/internal/logging"
)

const defaultRecallCacheSize = 256

// Manager is the long-term memory front door for the cognitive loop. Writes
// go through the WriteGate one at a time; reads go straight to the store.
//
// Read policy: chromem-go guards its collections with internal locks, so a
// Recall running concurrently with a Remember observes either the pre- or
// post-write state of the collection. A write is visible to every Recall
// that starts after WithExclusiveWrite returns.
type Manager struct {
	store  Store
	gate   *WriteGate
	cache  *lru.Cache[string, []SearchResult]
	logger logging.Logger
}

// NewManager creates a memory manager around the given store.
func NewManager(store Store, gate *WriteGate, logger logging.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("memory: store is required")
	}
	if gate == nil {
		gate = &WriteGate{}
	}
	cache, err := lru.New[string, []SearchResult](defaultRecallCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create recall cache: %w", err)
	}
	return &Manager{
		store:  store,
		gate:   gate,
		cache:  cache,
		logger: logging.OrNop(logger),
	}, nil
}

// Remember persists a learning under the exclusive write gate.
func (m *Manager) Remember(ctx context.Context, rec Record) error {
	if rec.Content == "" {
		return fmt.Errorf("memory: empty learning content")
	}

	err := m.gate.WithExclusiveWrite(func() error {
		return m.store.Add(ctx, []Record{rec})
	})
	if err != nil {
		return fmt.Errorf("persist learning: %w", err)
	}

	// Cached recall results are stale once a write lands.
	m.cache.Purge()
	m.logger.Debug("Stored learning from job %s cycle %d", rec.SourceJobID, rec.SourceCycleIndex)
	return nil
}

// Recall returns the topK most relevant learnings for the query. Results are
// served from a small LRU until the next successful Remember.
func (m *Manager) Recall(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	key := fmt.Sprintf("%d|%s", topK, query)
	if cached, ok := m.cache.Get(key); ok {
		return cached, nil
	}

	results, err := m.store.Query(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("recall: %w", err)
	}

	m.cache.Add(key, results)
	return results, nil
}

// Count returns the number of stored learnings.
func (m *Manager) Count() int {
	return m.store.Count()
}
