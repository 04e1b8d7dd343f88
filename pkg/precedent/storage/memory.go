package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/minos/pkg/precedent"
)

// MemoryStorage implements the Storage interface using in-memory maps.
// Intended for testing only.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*precedent.Precedent
	byHash  map[string]string
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*precedent.Precedent),
		byHash:  make(map[string]string),
	}
}

// Store persists a precedent in memory, deduplicating by canonical hash.
func (s *MemoryStorage) Store(ctx context.Context, req *StoreRequest) (string, error) {
	hash := precedent.CanonicalHash(req.InputText, req.Context)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byHash[hash]; ok {
		return existing, nil
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	p := &precedent.Precedent{
		ID:             uuid.NewString(),
		RequestID:      req.RequestID,
		InputText:      req.InputText,
		ContextHash:    hash,
		Context:        req.Context,
		Verdict:        req.Verdict,
		Confidence:     req.Confidence,
		Embedding:      req.Embedding,
		EmbeddingModel: req.EmbeddingModel,
		Timestamp:      ts,
	}
	if len(req.CriticOutputs) > 0 {
		p.CriticOutputs = make([]precedent.CriticOutput, len(req.CriticOutputs))
		copy(p.CriticOutputs, req.CriticOutputs)
		sort.Slice(p.CriticOutputs, func(i, j int) bool {
			return p.CriticOutputs[i].CriticName < p.CriticOutputs[j].CriticName
		})
		for i := range p.CriticOutputs {
			p.CriticOutputs[i].PrecedentID = p.ID
		}
	}

	s.records[p.ID] = p.Clone()
	s.byHash[hash] = p.ID
	return p.ID, nil
}

// Get returns a copy of the precedent with the given id.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*precedent.Precedent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[id]
	if !ok {
		return nil, precedent.ErrNotFound
	}
	return p.Clone(), nil
}

// GetByHash returns the precedent with the given canonical hash.
func (s *MemoryStorage) GetByHash(ctx context.Context, contextHash string) (*precedent.Precedent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[contextHash]
	if !ok {
		return nil, precedent.ErrNotFound
	}
	return s.records[id].Clone(), nil
}

// Query returns copies of precedents matching the filters, newest first.
func (s *MemoryStorage) Query(ctx context.Context, q *precedent.Query) ([]*precedent.Precedent, error) {
	if q == nil {
		q = &precedent.Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*precedent.Precedent
	for _, p := range s.records {
		if matchesQuery(p, q) {
			results = append(results, p.Clone())
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	if q.Offset > 0 {
		if q.Offset >= len(results) {
			return []*precedent.Precedent{}, nil
		}
		results = results[q.Offset:]
	}
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	return results, nil
}

// Count returns the number of precedents matching the filters.
func (s *MemoryStorage) Count(ctx context.Context, q *precedent.Query) (int64, error) {
	if q == nil {
		q = &precedent.Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, p := range s.records {
		if matchesQuery(p, q) {
			count++
		}
	}
	return count, nil
}

// AddReference records a similarity edge between stored precedents.
func (s *MemoryStorage) AddReference(ctx context.Context, id, referencedID string, similarity float64, refType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return precedent.ErrNotFound
	}
	if _, ok := s.records[referencedID]; !ok {
		return precedent.ErrNotFound
	}

	for i, ref := range p.References {
		if ref.ReferencedID == referencedID {
			p.References[i].Similarity = similarity
			p.References[i].Type = refType
			return nil
		}
	}

	p.References = append(p.References, precedent.Reference{
		ReferencedID: referencedID,
		Similarity:   similarity,
		Type:         refType,
	})
	return nil
}

// Delete removes a precedent.
func (s *MemoryStorage) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[id]
	if !ok {
		return false, nil
	}
	delete(s.byHash, p.ContextHash)
	delete(s.records, id)
	return true, nil
}

// DeleteBefore removes precedents older than the cutoff.
func (s *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, p := range s.records {
		if p.Timestamp.Before(cutoff) {
			delete(s.byHash, p.ContextHash)
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// ListEmbeddings returns all stored embeddings.
func (s *MemoryStorage) ListEmbeddings(ctx context.Context) ([]EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []EmbeddingRecord
	for _, p := range s.records {
		if len(p.Embedding) > 0 {
			vec := make([]float32, len(p.Embedding))
			copy(vec, p.Embedding)
			records = append(records, EmbeddingRecord{
				PrecedentID: p.ID,
				Model:       p.EmbeddingModel,
				Vector:      vec,
			})
		}
	}
	return records, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}

// matchesQuery applies the query filters to a precedent.
func matchesQuery(p *precedent.Precedent, q *precedent.Query) bool {
	if q.Verdict != "" && p.Verdict != q.Verdict {
		return false
	}
	if q.MinConfidence > 0 && p.Confidence < q.MinConfidence {
		return false
	}
	if !q.Since.IsZero() && p.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && p.Timestamp.After(q.Until) {
		return false
	}
	return true
}
