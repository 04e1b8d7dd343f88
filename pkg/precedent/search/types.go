package search

import (
	"fmt"

	"mercator-hq/minos/pkg/precedent"
)

// Mode selects which retrieval channels participate in a search.
type Mode string

const (
	// ModeExact uses only canonical-hash matching.
	ModeExact Mode = "exact"

	// ModeSemantic uses only embedding similarity.
	ModeSemantic Mode = "semantic"

	// ModeHybrid combines both channels.
	ModeHybrid Mode = "hybrid"
)

// MatchType records which channel produced a result.
type MatchType string

const (
	// MatchExact is a canonical-hash match.
	MatchExact MatchType = "exact"

	// MatchSemantic is an embedding-similarity match.
	MatchSemantic MatchType = "semantic"
)

// Case is the query input for a precedent search.
type Case struct {
	// InputText is the text being judged.
	InputText string

	// Context holds the request context attributes.
	Context map[string]string
}

// SimilarPrecedent is a single search result.
type SimilarPrecedent struct {
	// ID is the matched precedent id.
	ID string `json:"id"`

	// Precedent is a copy of the matched record.
	Precedent *precedent.Precedent `json:"precedent"`

	// Similarity is the raw channel similarity (1.0 for exact matches).
	Similarity float64 `json:"similarity"`

	// Score is the channel-weighted, position-decayed ranking score.
	Score float64 `json:"score"`

	// MatchType records the producing channel.
	MatchType MatchType `json:"match_type"`
}

// Config contains tunables for hybrid search.
type Config struct {
	// ExactWeight scales exact-channel scores.
	// Default: 1.0
	ExactWeight float64 `yaml:"exact_weight"`

	// SemanticWeight scales semantic-channel scores.
	// Default: 0.8
	SemanticWeight float64 `yaml:"semantic_weight"`

	// DecayFactor decays each match after the first within a channel:
	// score *= decay^position.
	// Default: 0.95
	DecayFactor float64 `yaml:"decay_factor"`

	// DefaultMode is used when the caller passes an empty mode.
	// Default: hybrid
	DefaultMode Mode `yaml:"default_mode"`
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() *Config {
	return &Config{
		ExactWeight:    1.0,
		SemanticWeight: 0.8,
		DecayFactor:    0.95,
		DefaultMode:    ModeHybrid,
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.ExactWeight < 0 {
		return fmt.Errorf("exact_weight must be non-negative, got %v", c.ExactWeight)
	}
	if c.SemanticWeight < 0 {
		return fmt.Errorf("semantic_weight must be non-negative, got %v", c.SemanticWeight)
	}
	if c.DecayFactor <= 0 || c.DecayFactor > 1 {
		return fmt.Errorf("decay_factor must be in (0, 1], got %v", c.DecayFactor)
	}
	switch c.DefaultMode {
	case ModeExact, ModeSemantic, ModeHybrid, "":
	default:
		return fmt.Errorf("unknown search mode %q", c.DefaultMode)
	}
	return nil
}
