package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records write intervals so tests can assert serialization.
type fakeStore struct {
	mu        sync.Mutex
	records   []Record
	intervals [][2]time.Time
	writeTime time.Duration
	queryErr  error
	queries   int
}

func (s *fakeStore) Add(ctx context.Context, recs []Record) error {
	start := time.Now()
	if s.writeTime > 0 {
		time.Sleep(s.writeTime)
	}
	end := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recs...)
	s.intervals = append(s.intervals, [2]time.Time{start, end})
	return nil
}

func (s *fakeStore) Query(ctx context.Context, text string, topK int) ([]SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	out := make([]SearchResult, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, SearchResult{Record: rec, Similarity: 0.9})
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestWriteGateSerializesWrites(t *testing.T) {
	const writers = 8

	store := &fakeStore{writeTime: 5 * time.Millisecond}
	manager, err := NewManager(store, &WriteGate{}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := Record{
				Content:          fmt.Sprintf("learning %d", i),
				SourceJobID:      "job-1",
				SourceCycleIndex: i + 1,
			}
			require.NoError(t, manager.Remember(context.Background(), rec))
		}(i)
	}
	wg.Wait()

	require.Len(t, store.intervals, writers)

	// No two write intervals may overlap.
	for i := 0; i < len(store.intervals); i++ {
		for j := i + 1; j < len(store.intervals); j++ {
			a, b := store.intervals[i], store.intervals[j]
			overlap := a[0].Before(b[1]) && b[0].Before(a[1])
			assert.False(t, overlap, "write intervals %d and %d overlap", i, j)
		}
	}
}

func TestWriteGateReleasedOnPanic(t *testing.T) {
	gate := &WriteGate{}

	func() {
		defer func() { _ = recover() }()
		_ = gate.WithExclusiveWrite(func() error {
			panic("store blew up")
		})
	}()

	// Gate must be usable after the panicking write.
	done := make(chan struct{})
	go func() {
		_ = gate.WithExclusiveWrite(func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write gate still held after panic")
	}
}

func TestManagerRejectsEmptyLearning(t *testing.T) {
	manager, err := NewManager(&fakeStore{}, nil, nil)
	require.NoError(t, err)

	err = manager.Remember(context.Background(), Record{Content: ""})
	require.Error(t, err)
}

func TestRecallCachesUntilNextWrite(t *testing.T) {
	store := &fakeStore{}
	manager, err := NewManager(store, nil, nil)
	require.NoError(t, err)

	rec := Record{Content: "vertical farming needs LED spectra", SourceJobID: "job-1", SourceCycleIndex: 1}
	require.NoError(t, manager.Remember(context.Background(), rec))

	_, err = manager.Recall(context.Background(), "farming", 3)
	require.NoError(t, err)
	_, err = manager.Recall(context.Background(), "farming", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, store.queries, "second recall should hit the cache")

	// A new learning invalidates cached recalls.
	require.NoError(t, manager.Remember(context.Background(), Record{Content: "another learning", SourceJobID: "job-1", SourceCycleIndex: 2}))
	results, err := manager.Recall(context.Background(), "farming", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, store.queries)
	assert.Len(t, results, 2)
}
