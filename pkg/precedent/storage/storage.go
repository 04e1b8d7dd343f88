package storage

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/verdict"
)

// StoreRequest carries everything persisted for one finalized decision.
type StoreRequest struct {
	// RequestID links the precedent to the originating request.
	RequestID string

	// InputText is the judged input.
	InputText string

	// Context holds request context attributes.
	Context map[string]string

	// Verdict is the finalized decision.
	Verdict verdict.Verdict

	// Confidence is the decision confidence.
	Confidence float64

	// Embedding is the optional input embedding.
	Embedding []float32

	// EmbeddingModel names the model that produced the embedding.
	EmbeddingModel string

	// CriticOutputs are the per-critic reports behind the decision.
	CriticOutputs []precedent.CriticOutput

	// Timestamp is the decision time. Zero means "now".
	Timestamp time.Time
}

// EmbeddingRecord pairs a precedent id with its stored vector, used to build
// similarity indexes.
type EmbeddingRecord struct {
	PrecedentID string
	Model       string
	Vector      []float32
}

// Storage is the precedent persistence interface. Implementations must be
// safe for concurrent readers and writers; Store's dedup check-then-insert
// must be atomic.
type Storage interface {
	// Store persists a finalized decision and returns the precedent id.
	// Identical (input text, context) pairs return the existing id.
	Store(ctx context.Context, req *StoreRequest) (string, error)

	// Get returns a copy of the precedent with the given id, including its
	// references and critic outputs. Returns precedent.ErrNotFound when
	// absent.
	Get(ctx context.Context, id string) (*precedent.Precedent, error)

	// GetByHash returns the precedent with the given canonical hash,
	// including its references and critic outputs. Returns
	// precedent.ErrNotFound when absent.
	GetByHash(ctx context.Context, contextHash string) (*precedent.Precedent, error)

	// Query returns copies of precedents matching the filters.
	Query(ctx context.Context, q *precedent.Query) ([]*precedent.Precedent, error)

	// Count returns the number of precedents matching the filters.
	Count(ctx context.Context, q *precedent.Query) (int64, error)

	// AddReference records a weighted similarity edge between precedents.
	AddReference(ctx context.Context, id, referencedID string, similarity float64, refType string) error

	// Delete removes a precedent and its dependent rows. Returns false
	// when the id does not exist.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteBefore removes precedents older than the cutoff and returns
	// the number removed. Used by retention pruning.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ListEmbeddings returns all stored embeddings for index building.
	ListEmbeddings(ctx context.Context) ([]EmbeddingRecord, error)

	// Close releases backend resources.
	Close() error
}

// encodeVector serializes an embedding as a little-endian float32 blob.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserializes a little-endian float32 blob.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
