package index

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/minos/pkg/precedent/embedding"
)

// BruteForceIndex is an exact cosine scan over all stored vectors. Search is
// O(n) in the number of vectors, which is fine for stores up to the tens of
// thousands of precedents.
type BruteForceIndex struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewBruteForceIndex creates an empty brute-force index.
func NewBruteForceIndex() *BruteForceIndex {
	return &BruteForceIndex{vectors: make(map[string][]float32)}
}

// Add inserts or replaces a vector.
func (idx *BruteForceIndex) Add(ctx context.Context, precedentID string, vector []float32) error {
	cp := make([]float32, len(vector))
	copy(cp, vector)

	idx.mu.Lock()
	idx.vectors[precedentID] = cp
	idx.mu.Unlock()
	return nil
}

// Remove deletes a vector.
func (idx *BruteForceIndex) Remove(ctx context.Context, precedentID string) error {
	idx.mu.Lock()
	delete(idx.vectors, precedentID)
	idx.mu.Unlock()
	return nil
}

// Search scans all vectors and returns the topK nearest by cosine similarity.
// Ties break by precedent id for deterministic ordering.
func (idx *BruteForceIndex) Search(ctx context.Context, vector []float32, topK int, minSimilarity float64) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	matches := make([]Match, 0, len(idx.vectors))
	for id, v := range idx.vectors {
		sim := embedding.Cosine(vector, v)
		if sim >= minSimilarity {
			matches = append(matches, Match{PrecedentID: id, Similarity: sim})
		}
	}
	idx.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].PrecedentID < matches[j].PrecedentID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len returns the number of indexed vectors.
func (idx *BruteForceIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}
