package index

import (
	"context"
	"fmt"
)

// Match is a single nearest-neighbor result.
type Match struct {
	// PrecedentID identifies the matched precedent.
	PrecedentID string

	// Similarity is the cosine similarity to the query vector, in [0, 1]
	// for normalized embeddings.
	Similarity float64
}

// SimilarityIndex is the nearest-neighbor search interface over precedent
// embeddings. Implementations must be safe for concurrent use.
type SimilarityIndex interface {
	// Add inserts or replaces a vector for a precedent.
	Add(ctx context.Context, precedentID string, vector []float32) error

	// Remove deletes a precedent's vector. Removing an absent id is a
	// no-op.
	Remove(ctx context.Context, precedentID string) error

	// Search returns up to topK matches with similarity >= minSimilarity,
	// ordered by descending similarity.
	Search(ctx context.Context, vector []float32, topK int, minSimilarity float64) ([]Match, error)

	// Len returns the number of indexed vectors.
	Len() int
}

// Backend selects the index implementation at construction time.
type Backend string

const (
	// BackendBruteForce is the exact cosine scan.
	BackendBruteForce Backend = "bruteforce"

	// BackendChromem is the chromem-go accelerated index.
	BackendChromem Backend = "chromem"
)

// New constructs the configured index backend.
func New(backend Backend, persistPath string) (SimilarityIndex, error) {
	switch backend {
	case BackendBruteForce, "":
		return NewBruteForceIndex(), nil
	case BackendChromem:
		return NewChromemIndex(persistPath)
	default:
		return nil, fmt.Errorf("unknown index backend %q", backend)
	}
}
