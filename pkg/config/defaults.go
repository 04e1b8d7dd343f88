package config

import (
	"time"

	"mercator-hq/minos/pkg/aggregation"
	"mercator-hq/minos/pkg/fallback"
	"mercator-hq/minos/pkg/precedent/search"
	"mercator-hq/minos/pkg/privacy"
	"mercator-hq/minos/pkg/retention"
)

// DefaultConfig returns the full configuration with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults. Called after YAML
// unmarshaling so partial configuration files work.
func (c *Config) ApplyDefaults() {
	if c.Aggregation.BlockThreshold == 0 {
		c.Aggregation.BlockThreshold = aggregation.DefaultConfig().BlockThreshold
	}
	if c.Aggregation.ErrorReviewThreshold == 0 {
		c.Aggregation.ErrorReviewThreshold = aggregation.DefaultConfig().ErrorReviewThreshold
	}
	if c.Aggregation.AmbiguityThreshold == 0 {
		c.Aggregation.AmbiguityThreshold = aggregation.DefaultConfig().AmbiguityThreshold
	}
	if c.Aggregation.MoralMode == "" {
		c.Aggregation.MoralMode = aggregation.DefaultConfig().MoralMode
	}
	if c.Aggregation.CategoryMultipliers == nil {
		c.Aggregation.CategoryMultipliers = aggregation.DefaultConfig().CategoryMultipliers
	}

	fb := fallback.DefaultConfig()
	if c.Fallback.Strategy == "" {
		c.Fallback.Strategy = fb.Strategy
	}
	if c.Fallback.ErrorRateThreshold == 0 {
		c.Fallback.ErrorRateThreshold = fb.ErrorRateThreshold
	}
	if c.Fallback.ConfidenceFloor == 0 {
		c.Fallback.ConfidenceFloor = fb.ConfidenceFloor
	}
	if c.Fallback.FailSafeVerdict == "" {
		c.Fallback.FailSafeVerdict = fb.FailSafeVerdict
	}
	if c.Fallback.ConfidenceDamping == 0 {
		c.Fallback.ConfidenceDamping = fb.ConfidenceDamping
	}

	if c.Critics.MaxWorkers == 0 {
		c.Critics.MaxWorkers = 8
	}
	if c.Critics.CriticTimeout == 0 {
		c.Critics.CriticTimeout = 10 * time.Second
	}
	if c.Critics.Cache.Size == 0 {
		c.Critics.Cache.Enabled = true
		c.Critics.Cache.Size = 4096
		c.Critics.Cache.TTL = 5 * time.Minute
	}
	for i := range c.Critics.Definitions {
		d := &c.Critics.Definitions[i]
		if d.Weight == 0 {
			d.Weight = 1.0
		}
		if d.Confidence == 0 {
			d.Confidence = 0.9
		}
	}

	if c.Precedent.Storage.Path == "" {
		c.Precedent.Storage.Path = "data/precedents.db"
	}
	if c.Precedent.Storage.Driver == "" {
		c.Precedent.Storage.Driver = "sqlite3"
	}
	if c.Precedent.Storage.MaxOpenConns == 0 {
		c.Precedent.Storage.MaxOpenConns = 10
		c.Precedent.Storage.WALMode = true
	}
	if c.Precedent.Storage.MaxIdleConns == 0 {
		c.Precedent.Storage.MaxIdleConns = 5
	}
	if c.Precedent.Storage.BusyTimeout == 0 {
		c.Precedent.Storage.BusyTimeout = 5 * time.Second
	}
	if c.Precedent.IndexBackend == "" {
		c.Precedent.IndexBackend = "bruteforce"
	}
	if c.Precedent.Embedding.OpenAI.Model == "" {
		c.Precedent.Embedding.OpenAI.Model = "text-embedding-3-small"
	}
	if c.Precedent.Embedding.OpenAI.CacheSize == 0 {
		c.Precedent.Embedding.OpenAI.CacheSize = 1024
	}
	if c.Precedent.Embedding.OpenAI.Timeout == 0 {
		c.Precedent.Embedding.OpenAI.Timeout = 30 * time.Second
	}

	sc := search.DefaultConfig()
	if c.Precedent.Search.ExactWeight == 0 {
		c.Precedent.Search.ExactWeight = sc.ExactWeight
	}
	if c.Precedent.Search.SemanticWeight == 0 {
		c.Precedent.Search.SemanticWeight = sc.SemanticWeight
	}
	if c.Precedent.Search.DecayFactor == 0 {
		c.Precedent.Search.DecayFactor = sc.DecayFactor
	}
	if c.Precedent.Search.DefaultMode == "" {
		c.Precedent.Search.DefaultMode = sc.DefaultMode
	}

	rc := search.DefaultRankerConfig()
	if c.Precedent.Ranker.HalfLifeDays == 0 {
		c.Precedent.Ranker.HalfLifeDays = rc.HalfLifeDays
	}
	if c.Precedent.Ranker.SimilarityWeight == 0 && c.Precedent.Ranker.RecencyWeight == 0 && c.Precedent.Ranker.ConfidenceWeight == 0 {
		c.Precedent.Ranker.SimilarityWeight = rc.SimilarityWeight
		c.Precedent.Ranker.RecencyWeight = rc.RecencyWeight
		c.Precedent.Ranker.ConfidenceWeight = rc.ConfidenceWeight
	}

	pb := privacy.DefaultBundlerConfig()
	if c.Privacy.RedactedFields == nil {
		c.Privacy.RedactedFields = pb.RedactedFields
	}
	if c.Privacy.AgeRangeSize == 0 {
		c.Privacy.AgeRangeSize = pb.AgeRangeSize
	}
	if c.Privacy.LocationKey == "" {
		c.Privacy.LocationKey = pb.LocationKey
	}
	if c.Privacy.AgeKey == "" {
		c.Privacy.AgeKey = pb.AgeKey
	}

	rt := retention.DefaultConfig()
	if c.Retention.RetentionDays == 0 {
		c.Retention.RetentionDays = rt.RetentionDays
	}
	if c.Retention.PruneSchedule == "" {
		c.Retention.PruneSchedule = rt.PruneSchedule
	}

	if c.Audit.BufferSize == 0 {
		c.Audit.Enabled = true
		c.Audit.BufferSize = 1000
	}
	if c.Audit.SignTimeout == 0 {
		c.Audit.SignTimeout = 5 * time.Second
	}

	if c.Telemetry.LogLevel == "" {
		c.Telemetry.LogLevel = "info"
	}
	if c.Telemetry.LogFormat == "" {
		c.Telemetry.LogFormat = "json"
	}
	if c.Telemetry.MetricsNamespace == "" {
		c.Telemetry.MetricsNamespace = "minos"
	}
}
