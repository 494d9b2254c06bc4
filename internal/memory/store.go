package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	PersistPath string // Directory to persist data; empty means in-memory
	Collection  string // Collection name (default: "learnings")
}

// Record is one durable learning. Embeddings are produced by the store and
// are opaque to the rest of the system. Records are never mutated after
// creation; the store is append-only and defines no delete path.
type Record struct {
	ID               string
	Content          string
	Embedding        []float32
	SourceJobID      string
	SourceCycleIndex int
}

// SearchResult is a recalled record with its similarity to the query.
type SearchResult struct {
	Record     Record
	Similarity float32 // 0.0 to 1.0, higher is more relevant
}

// EmbeddingFunc produces a vector for a text. Compatible with
// chromem.EmbeddingFunc so bootstrap can plug in any chromem provider.
type EmbeddingFunc func(ctx context.Context, text string) ([]float32, error)

// Store holds the learnings and answers similarity queries.
type Store interface {
	// Add appends records to the store.
	Add(ctx context.Context, recs []Record) error

	// Query returns the topK most relevant records for the text, most
	// relevant first. Returns an empty slice when the store is empty.
	Query(ctx context.Context, text string, topK int) ([]SearchResult, error)

	// Count returns total record count.
	Count() int
}

// chromemStore implements Store using chromem-go.
type chromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewStore creates a vector store, persistent when config.PersistPath is set.
func NewStore(config StoreConfig, embed EmbeddingFunc) (Store, error) {
	if config.Collection == "" {
		config.Collection = "learnings"
	}

	var db *chromem.DB
	var err error
	if config.PersistPath != "" {
		persistFile := filepath.Join(config.PersistPath, "chromem.gob")
		db, err = chromem.NewPersistentDB(persistFile, false)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &chromemStore{db: db, collection: collection}, nil
}

func (s *chromemStore) Add(ctx context.Context, recs []Record) error {
	for _, rec := range recs {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		err := s.collection.AddDocument(ctx, chromem.Document{
			ID:        id,
			Content:   rec.Content,
			Embedding: rec.Embedding,
			Metadata: map[string]string{
				"source_job_id":      rec.SourceJobID,
				"source_cycle_index": strconv.Itoa(rec.SourceCycleIndex),
			},
		})
		if err != nil {
			return fmt.Errorf("add record %s: %w", id, err)
		}
	}
	return nil
}

func (s *chromemStore) Query(ctx context.Context, text string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := s.collection.Query(ctx, text, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		cycleIndex, _ := strconv.Atoi(r.Metadata["source_cycle_index"])
		out = append(out, SearchResult{
			Record: Record{
				ID:               r.ID,
				Content:          r.Content,
				Embedding:        r.Embedding,
				SourceJobID:      r.Metadata["source_job_id"],
				SourceCycleIndex: cycleIndex,
			},
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

func (s *chromemStore) Count() int {
	return s.collection.Count()
}
