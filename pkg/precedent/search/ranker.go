package search

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// RankStrategy selects how retrieved precedents are ordered.
type RankStrategy string

const (
	// RankBySimilarity sorts descending by the provided similarity.
	RankBySimilarity RankStrategy = "similarity"

	// RankByRecency sorts descending by an exponential-decay recency score.
	RankByRecency RankStrategy = "recency"

	// RankHybrid combines normalized similarity, recency, and confidence
	// with configurable weights. Equal composite scores preserve the
	// original relative order.
	RankHybrid RankStrategy = "hybrid"
)

// RankerConfig contains ranking tunables.
type RankerConfig struct {
	// HalfLifeDays is the recency half-life: a precedent this many days
	// old scores 0.5 on recency.
	// Default: 30
	HalfLifeDays float64 `yaml:"half_life_days"`

	// SimilarityWeight, RecencyWeight, and ConfidenceWeight combine the
	// normalized factors under the hybrid strategy.
	// Defaults: 0.5, 0.3, 0.2
	SimilarityWeight float64 `yaml:"similarity_weight"`
	RecencyWeight    float64 `yaml:"recency_weight"`
	ConfidenceWeight float64 `yaml:"confidence_weight"`
}

// DefaultRankerConfig returns the default ranking configuration.
func DefaultRankerConfig() *RankerConfig {
	return &RankerConfig{
		HalfLifeDays:     30,
		SimilarityWeight: 0.5,
		RecencyWeight:    0.3,
		ConfidenceWeight: 0.2,
	}
}

// RankedPrecedent pairs a search result with its ranking score.
type RankedPrecedent struct {
	*SimilarPrecedent

	// RankScore is the strategy-specific composite score.
	RankScore float64 `json:"rank_score"`
}

// Ranker re-orders retrieved precedents.
type Ranker struct {
	config *RankerConfig
	now    func() time.Time
}

// NewRanker creates a ranker with the given configuration.
func NewRanker(config *RankerConfig) *Ranker {
	if config == nil {
		config = DefaultRankerConfig()
	}
	return &Ranker{config: config, now: time.Now}
}

// Rank orders precedents by the given strategy. The input slice is not
// modified; a new ranked slice is returned.
func (r *Ranker) Rank(precedents []*SimilarPrecedent, strategy RankStrategy) ([]*RankedPrecedent, error) {
	ranked := make([]*RankedPrecedent, len(precedents))

	switch strategy {
	case RankBySimilarity:
		for i, p := range precedents {
			ranked[i] = &RankedPrecedent{SimilarPrecedent: p, RankScore: p.Similarity}
		}

	case RankByRecency:
		for i, p := range precedents {
			ranked[i] = &RankedPrecedent{SimilarPrecedent: p, RankScore: r.recencyScore(p)}
		}

	case RankHybrid:
		for i, p := range precedents {
			score := r.config.SimilarityWeight*p.Similarity +
				r.config.RecencyWeight*r.recencyScore(p) +
				r.config.ConfidenceWeight*r.confidenceScore(p)
			ranked[i] = &RankedPrecedent{SimilarPrecedent: p, RankScore: score}
		}

	default:
		return nil, fmt.Errorf("unknown rank strategy %q", strategy)
	}

	// Stable: equal scores preserve original relative order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RankScore > ranked[j].RankScore
	})

	return ranked, nil
}

// recencyScore is exp(-ln2 × ageDays / halfLife), clamped to [0, 1].
func (r *Ranker) recencyScore(p *SimilarPrecedent) float64 {
	if p.Precedent == nil || p.Precedent.Timestamp.IsZero() {
		return 0
	}
	ageDays := r.now().Sub(p.Precedent.Timestamp).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-math.Ln2 * ageDays / r.config.HalfLifeDays)
}

func (r *Ranker) confidenceScore(p *SimilarPrecedent) float64 {
	if p.Precedent == nil {
		return 0
	}
	return p.Precedent.Confidence
}
