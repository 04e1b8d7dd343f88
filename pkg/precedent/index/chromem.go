package index

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemIndex implements SimilarityIndex on top of the chromem-go embedded
// vector database. Vectors are supplied pre-computed, so the collection's
// embedding function is never invoked.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.Mutex
}

// NewChromemIndex creates a chromem-backed index. With a non-empty
// persistPath the index survives restarts.
func NewChromemIndex(persistPath string) (*ChromemIndex, error) {
	var db *chromem.DB
	var err error

	if persistPath != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(persistPath, "precedents.gob"), false)
		if err != nil {
			return nil, fmt.Errorf("create persistent index: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are always provided by the caller; the embedding function
	// is a guard against accidental text queries.
	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("index stores precomputed embeddings only")
	}

	collection, err := db.GetOrCreateCollection("precedents", nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemIndex{db: db, collection: collection}, nil
}

// Add inserts or replaces a vector.
func (idx *ChromemIndex) Add(ctx context.Context, precedentID string, vector []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	err := idx.collection.AddDocument(ctx, chromem.Document{
		ID:        precedentID,
		Embedding: vector,
		Content:   precedentID,
	})
	if err != nil {
		return fmt.Errorf("add vector %s: %w", precedentID, err)
	}
	return nil
}

// Remove deletes a vector.
func (idx *ChromemIndex) Remove(ctx context.Context, precedentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.collection.Delete(ctx, nil, nil, precedentID); err != nil {
		return fmt.Errorf("remove vector %s: %w", precedentID, err)
	}
	return nil
}

// Search queries the collection by embedding. chromem requires the result
// count to be at most the collection size, so topK is clamped.
func (idx *ChromemIndex) Search(ctx context.Context, vector []float32, topK int, minSimilarity float64) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	count := idx.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := idx.collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		sim := float64(r.Similarity)
		if sim < minSimilarity {
			continue
		}
		matches = append(matches, Match{PrecedentID: r.ID, Similarity: sim})
	}
	return matches, nil
}

// Len returns the number of indexed vectors.
func (idx *ChromemIndex) Len() int {
	return idx.collection.Count()
}
