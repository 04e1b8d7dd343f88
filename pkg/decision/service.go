package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/precedent/embedding"
	"mercator-hq/minos/pkg/precedent/index"
	"mercator-hq/minos/pkg/precedent/search"
	"mercator-hq/minos/pkg/precedent/storage"
	"mercator-hq/minos/pkg/telemetry/metrics"
	"mercator-hq/minos/pkg/verdict"
)

// PrecedentService combines durable storage, the embedding provider, and the
// similarity index behind one recording and retrieval surface. The embedder
// and index are optional; without them only exact-match retrieval works.
type PrecedentService struct {
	store    storage.Storage
	embedder embedding.Provider
	index    index.SimilarityIndex
	searcher *search.HybridSearcher
	metrics  *metrics.StoreMetrics
	logger   *slog.Logger
}

// NewPrecedentService creates the precedent recording and retrieval service.
// embedder, idx, and storeMetrics may be nil.
func NewPrecedentService(store storage.Storage, embedder embedding.Provider, idx index.SimilarityIndex, searchConfig *search.Config, storeMetrics *metrics.StoreMetrics, logger *slog.Logger) (*PrecedentService, error) {
	if store == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if logger == nil {
		logger = slog.Default().With("component", "precedent")
	}

	searcher, err := search.NewHybridSearcher(store, embedder, idx, searchConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create searcher: %w", err)
	}

	return &PrecedentService{
		store:    store,
		embedder: embedder,
		index:    idx,
		searcher: searcher,
		metrics:  storeMetrics,
		logger:   logger,
	}, nil
}

// Record persists a finalized decision as a precedent and indexes its
// embedding. Recording the same (input text, context) pair again returns the
// existing precedent id without creating a duplicate.
func (s *PrecedentService) Record(ctx context.Context, req *storage.StoreRequest) (string, error) {
	if req.Embedding == nil && s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, req.InputText)
		if err != nil {
			// Embedding failure degrades to exact-match only for this
			// precedent; it never blocks recording.
			s.logger.Warn("embedding failed, storing without vector",
				"request_id", req.RequestID, "error", err)
		} else {
			req.Embedding = vec
			req.EmbeddingModel = s.embedder.Model()
		}
	}

	hash := precedent.CanonicalHash(req.InputText, req.Context)
	existing, err := s.store.GetByHash(ctx, hash)
	if err != nil && !errors.Is(err, precedent.ErrNotFound) {
		return "", fmt.Errorf("dedup lookup: %w", err)
	}
	dedup := existing != nil

	id, err := s.store.Store(ctx, req)
	if err != nil {
		return "", fmt.Errorf("store precedent: %w", err)
	}

	if s.metrics != nil {
		if dedup {
			s.metrics.RecordStore("dedup")
		} else {
			s.metrics.RecordStore("created")
		}
	}

	if !dedup && s.index != nil && req.Embedding != nil {
		if err := s.index.Add(ctx, id, req.Embedding); err != nil {
			s.logger.Warn("index add failed", "precedent_id", id, "error", err)
		}
	}

	return id, nil
}

// FindSimilar retrieves precedents similar to the given case.
func (s *PrecedentService) FindSimilar(ctx context.Context, c *search.Case, topK int, minSimilarity float64, mode search.Mode) ([]*search.SimilarPrecedent, error) {
	start := time.Now()
	results, err := s.searcher.Search(ctx, c, topK, minSimilarity, mode)
	if s.metrics != nil {
		s.metrics.RecordSearch(string(mode), time.Since(start))
	}
	return results, err
}

// Get returns the precedent with the given id.
func (s *PrecedentService) Get(ctx context.Context, id string) (*precedent.Precedent, error) {
	return s.store.Get(ctx, id)
}

// Query returns precedents matching the filters.
func (s *PrecedentService) Query(ctx context.Context, q *precedent.Query) ([]*precedent.Precedent, error) {
	return s.store.Query(ctx, q)
}

// AddReference records a similarity edge between two precedents.
func (s *PrecedentService) AddReference(ctx context.Context, id, referencedID string, similarity float64, refType string) error {
	return s.store.AddReference(ctx, id, referencedID, similarity, refType)
}

// RebuildIndex reloads every stored embedding into the similarity index.
// Called at startup when the index is not persistent.
func (s *PrecedentService) RebuildIndex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}

	records, err := s.store.ListEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("list embeddings: %w", err)
	}

	added := 0
	for _, rec := range records {
		if err := s.index.Add(ctx, rec.PrecedentID, rec.Vector); err != nil {
			s.logger.Warn("index rebuild: add failed",
				"precedent_id", rec.PrecedentID, "error", err)
			continue
		}
		added++
	}

	s.logger.Info("similarity index rebuilt", "embeddings", added)
	return added, nil
}

// Verdicts returns the distinct verdict counts for the matching precedents.
// Used by operational reporting.
func (s *PrecedentService) Verdicts(ctx context.Context, q *precedent.Query) (map[verdict.Verdict]int64, error) {
	counts := make(map[verdict.Verdict]int64)
	for _, v := range []verdict.Verdict{verdict.VerdictAllow, verdict.VerdictBlock, verdict.VerdictReview, verdict.VerdictEscalate} {
		qq := *q
		qq.Verdict = v
		n, err := s.store.Count(ctx, &qq)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			counts[v] = n
		}
	}
	return counts, nil
}

// Close releases storage resources.
func (s *PrecedentService) Close() error {
	return s.store.Close()
}
