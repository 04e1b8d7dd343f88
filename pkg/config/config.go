package config

import (
	"time"

	"mercator-hq/minos/pkg/aggregation"
	"mercator-hq/minos/pkg/fallback"
	"mercator-hq/minos/pkg/precedent/embedding"
	"mercator-hq/minos/pkg/precedent/search"
	"mercator-hq/minos/pkg/privacy"
	"mercator-hq/minos/pkg/retention"
)

// Config is the root configuration structure for Minos.
type Config struct {
	// Aggregation contains verdict aggregation tunables.
	Aggregation aggregation.Config `yaml:"aggregation"`

	// Fallback contains degraded-mode decision tunables.
	Fallback fallback.Config `yaml:"fallback"`

	// Critics contains the critic definitions and evaluation pool
	// settings.
	Critics CriticsConfig `yaml:"critics"`

	// Precedent contains precedent storage and retrieval settings.
	Precedent PrecedentConfig `yaml:"precedent"`

	// Privacy contains anonymous bundle settings.
	Privacy privacy.BundlerConfig `yaml:"privacy"`

	// Retention contains precedent retention settings.
	Retention retention.Config `yaml:"retention"`

	// Audit contains decision record emission settings.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains observability settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// CriticsConfig contains the critic registry and pool configuration.
type CriticsConfig struct {
	// Definitions lists the critics registered at startup.
	Definitions []CriticDefinition `yaml:"definitions"`

	// MaxWorkers bounds concurrent critic evaluations.
	// Default: 8
	MaxWorkers int `yaml:"max_workers"`

	// CriticTimeout is the per-critic evaluation deadline.
	// Default: 10s
	CriticTimeout time.Duration `yaml:"critic_timeout"`

	// ConfigVersion tags result cache keys; bump it to invalidate cached
	// critic results after a rule change.
	ConfigVersion string `yaml:"config_version"`

	// Cache contains the critic result cache settings.
	Cache CriticCacheConfig `yaml:"cache"`

	// WatchConfig enables hot-reloading of critic weights and
	// criticality from the config file.
	WatchConfig bool `yaml:"watch_config"`
}

// CriticDefinition declares one critic in static configuration.
type CriticDefinition struct {
	// Name identifies the critic. Must be unique.
	Name string `yaml:"name"`

	// Type selects the critic implementation ("keyword" or "length").
	Type string `yaml:"type"`

	// Keywords are the blocked terms for keyword critics.
	Keywords []string `yaml:"keywords"`

	// MaxLength is the size threshold for length critics.
	MaxLength int `yaml:"max_length"`

	// Confidence is the critic's reported confidence.
	Confidence float64 `yaml:"confidence"`

	// Weight is the critic's base aggregation weight.
	// Default: 1.0
	Weight float64 `yaml:"weight"`

	// Category classifies the critic for moral-mode weighting.
	Category string `yaml:"category"`

	// Priority is the optional priority tag ("override").
	Priority string `yaml:"priority"`

	// Critical marks the critic for the critical-failure fallback
	// trigger.
	Critical bool `yaml:"critical"`
}

// CriticCacheConfig contains the critic result cache settings.
type CriticCacheConfig struct {
	// Enabled turns the result cache on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Size is the maximum number of cached results.
	// Default: 4096
	Size int `yaml:"size"`

	// TTL is the entry lifetime.
	// Default: 5m
	TTL time.Duration `yaml:"ttl"`
}

// PrecedentConfig contains precedent storage and retrieval settings.
type PrecedentConfig struct {
	// Storage contains the SQLite backend settings.
	Storage StorageConfig `yaml:"storage"`

	// Embedding contains the embedding provider settings.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// IndexBackend selects the similarity index ("bruteforce" or
	// "chromem").
	// Default: "bruteforce"
	IndexBackend string `yaml:"index_backend"`

	// IndexPath persists the chromem index when set.
	IndexPath string `yaml:"index_path"`

	// Search contains hybrid search tunables.
	Search search.Config `yaml:"search"`

	// Ranker contains precedent ranking tunables.
	Ranker search.RankerConfig `yaml:"ranker"`
}

// StorageConfig contains the SQLite storage settings.
type StorageConfig struct {
	// Path is the database file path.
	// Default: "data/precedents.db"
	Path string `yaml:"path"`

	// Driver selects the SQL driver: "sqlite3" (cgo) or "sqlite"
	// (pure Go).
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// EmbeddingConfig contains the embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the implementation: "openai", "static", or ""
	// (disabled). Disabling embeddings disables semantic search only;
	// exact-match retrieval keeps working.
	Provider string `yaml:"provider"`

	// OpenAI contains the OpenAI provider settings.
	OpenAI embedding.OpenAIConfig `yaml:"openai"`
}

// AuditConfig contains decision record emission settings.
type AuditConfig struct {
	// Enabled turns audit emission on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// BufferSize bounds the pending record queue.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// SignTimeout bounds each Sign call.
	// Default: 5s
	SignTimeout time.Duration `yaml:"sign_timeout"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	// LogLevel is the minimum log level ("debug", "info", "warn",
	// "error").
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is the log output format ("json" or "text").
	// Default: "json"
	LogFormat string `yaml:"log_format"`

	// MetricsNamespace prefixes all metric names.
	// Default: "minos"
	MetricsNamespace string `yaml:"metrics_namespace"`

	// MetricsAddress exposes the Prometheus endpoint when set
	// (e.g. "127.0.0.1:9090").
	MetricsAddress string `yaml:"metrics_address"`
}
