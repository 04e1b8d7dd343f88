package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/precedent/embedding"
	"mercator-hq/minos/pkg/precedent/index"
	"mercator-hq/minos/pkg/precedent/storage"
)

// HybridSearcher composes exact-hash and embedding-similarity retrieval.
type HybridSearcher struct {
	store    storage.Storage
	embedder embedding.Provider
	idx      index.SimilarityIndex
	config   *Config
	logger   *slog.Logger
}

// NewHybridSearcher creates a searcher. The embedder and index are optional;
// without them semantic search returns no results but exact matching keeps
// working.
func NewHybridSearcher(store storage.Storage, embedder embedding.Provider, idx index.SimilarityIndex, config *Config, logger *slog.Logger) (*HybridSearcher, error) {
	if store == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}
	if logger == nil {
		logger = slog.Default().With("component", "precedent.search")
	}
	return &HybridSearcher{
		store:    store,
		embedder: embedder,
		idx:      idx,
		config:   config,
		logger:   logger,
	}, nil
}

// Search retrieves up to topK precedents similar to the query case.
//
// Exact matches carry similarity 1.0 and are kept first; semantic matches
// fill the remainder, with duplicate ids already returned by the exact
// channel dropped. Every match after the first within a channel is decayed
// by position.
func (s *HybridSearcher) Search(ctx context.Context, c *Case, topK int, minSimilarity float64, mode Mode) ([]*SimilarPrecedent, error) {
	if c == nil {
		return nil, fmt.Errorf("case cannot be nil")
	}
	if topK <= 0 {
		topK = 5
	}
	if mode == "" {
		mode = s.config.DefaultMode
	}

	var exact []*SimilarPrecedent
	var semantic []*SimilarPrecedent
	var err error

	if mode == ModeExact || mode == ModeHybrid {
		exact, err = s.exactMatches(ctx, c)
		if err != nil {
			return nil, err
		}
	}

	if mode == ModeSemantic || mode == ModeHybrid {
		seen := make(map[string]bool, len(exact))
		for _, m := range exact {
			seen[m.ID] = true
		}
		semantic, err = s.semanticMatches(ctx, c, topK, minSimilarity, seen)
		if err != nil {
			return nil, err
		}
	}

	// Channel weighting with positional decay inside each channel.
	s.applyChannelScore(exact, s.config.ExactWeight)
	s.applyChannelScore(semantic, s.config.SemanticWeight)

	merged := append(exact, semantic...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}

	s.logger.Debug("precedent search",
		"mode", mode,
		"exact_matches", len(exact),
		"semantic_matches", len(semantic),
		"returned", len(merged),
	)

	return merged, nil
}

// exactMatches looks up precedents whose canonical hash equals the query's.
func (s *HybridSearcher) exactMatches(ctx context.Context, c *Case) ([]*SimilarPrecedent, error) {
	hash := precedent.CanonicalHash(c.InputText, c.Context)

	p, err := s.store.GetByHash(ctx, hash)
	if errors.Is(err, precedent.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("exact lookup: %w", err)
	}

	return []*SimilarPrecedent{{
		ID:         p.ID,
		Precedent:  p,
		Similarity: 1.0,
		MatchType:  MatchExact,
	}}, nil
}

// semanticMatches embeds the query and retrieves nearest stored embeddings.
// An over-fetch of topK×3 compensates for matches dropped by the dedup and
// similarity filters.
func (s *HybridSearcher) semanticMatches(ctx context.Context, c *Case, topK int, minSimilarity float64, seen map[string]bool) ([]*SimilarPrecedent, error) {
	if s.embedder == nil || s.idx == nil {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, c.InputText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.idx.Search(ctx, queryVec, topK*3, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	results := make([]*SimilarPrecedent, 0, len(matches))
	for _, m := range matches {
		if seen[m.PrecedentID] {
			continue
		}
		p, err := s.store.Get(ctx, m.PrecedentID)
		if errors.Is(err, precedent.ErrNotFound) {
			// Index can lag deletions; skip stale entries.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load match %s: %w", m.PrecedentID, err)
		}
		results = append(results, &SimilarPrecedent{
			ID:         m.PrecedentID,
			Precedent:  p,
			Similarity: m.Similarity,
			MatchType:  MatchSemantic,
		})
	}
	return results, nil
}

// applyChannelScore weights a channel's matches and decays each match after
// the first by its position.
func (s *HybridSearcher) applyChannelScore(matches []*SimilarPrecedent, weight float64) {
	for i, m := range matches {
		m.Score = m.Similarity * weight * math.Pow(s.config.DecayFactor, float64(i))
	}
}
