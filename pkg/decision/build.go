package decision

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/minos/pkg/aggregation"
	"mercator-hq/minos/pkg/audit"
	"mercator-hq/minos/pkg/config"
	"mercator-hq/minos/pkg/critics"
	"mercator-hq/minos/pkg/fallback"
	"mercator-hq/minos/pkg/precedent/embedding"
	"mercator-hq/minos/pkg/precedent/index"
	"mercator-hq/minos/pkg/precedent/storage"
	"mercator-hq/minos/pkg/retention"
	"mercator-hq/minos/pkg/telemetry/metrics"
)

// System is the fully assembled engine with its supporting services.
type System struct {
	Engine     *Engine
	Registry   *critics.Registry
	Precedents *PrecedentService
	Pruner     *retention.Pruner
	Emitter    *audit.Emitter

	signer *audit.JSONLSigner
}

// Options tweaks system assembly beyond what configuration expresses.
type Options struct {
	// AuditTrailPath enables the chained JSONL audit signer when set.
	AuditTrailPath string

	// InMemoryStorage replaces SQLite with the in-memory store. Used by
	// one-shot CLI invocations and tests.
	InMemoryStorage bool
}

// Build assembles the decision system from configuration. promRegistry may
// be nil to disable metrics.
func Build(cfg *config.Config, opts *Options, promRegistry *prometheus.Registry, logger *slog.Logger) (*System, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts == nil {
		opts = &Options{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := BuildRegistry(cfg.Critics.Definitions)
	if err != nil {
		return nil, err
	}

	var cache *critics.ResultCache
	if cfg.Critics.Cache.Enabled {
		cache = critics.NewResultCache(&critics.CacheConfig{
			Size: cfg.Critics.Cache.Size,
			TTL:  cfg.Critics.Cache.TTL,
		})
	}

	pool, err := critics.NewPool(registry, cache, &critics.PoolConfig{
		MaxWorkers:    cfg.Critics.MaxWorkers,
		CriticTimeout: cfg.Critics.CriticTimeout,
		ConfigVersion: cfg.Critics.ConfigVersion,
	}, logger.With("component", "critics"))
	if err != nil {
		return nil, fmt.Errorf("create critic pool: %w", err)
	}

	aggregator, err := aggregation.New(&cfg.Aggregation, logger.With("component", "aggregation"))
	if err != nil {
		return nil, fmt.Errorf("create aggregator: %w", err)
	}

	fbCfg := cfg.Fallback
	if len(fbCfg.CriticalCritics) == 0 {
		fbCfg.CriticalCritics = registry.CriticalNames()
	}
	fb, err := fallback.NewEngine(&fbCfg, logger.With("component", "fallback"))
	if err != nil {
		return nil, fmt.Errorf("create fallback engine: %w", err)
	}

	var decisionMetrics *metrics.DecisionMetrics
	var storeMetrics *metrics.StoreMetrics
	if promRegistry != nil {
		mcfg := &metrics.Config{Namespace: cfg.Telemetry.MetricsNamespace}
		decisionMetrics = metrics.NewDecisionMetrics(mcfg, promRegistry)
		storeMetrics = metrics.NewStoreMetrics(mcfg, promRegistry)
	}

	var store storage.Storage
	if opts.InMemoryStorage {
		store = storage.NewMemoryStorage()
	} else {
		store, err = storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Precedent.Storage.Path,
			Driver:       cfg.Precedent.Storage.Driver,
			MaxOpenConns: cfg.Precedent.Storage.MaxOpenConns,
			MaxIdleConns: cfg.Precedent.Storage.MaxIdleConns,
			WALMode:      cfg.Precedent.Storage.WALMode,
			BusyTimeout:  cfg.Precedent.Storage.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open precedent storage: %w", err)
		}
	}

	var embedder embedding.Provider
	switch cfg.Precedent.Embedding.Provider {
	case "openai":
		p, err := embedding.NewOpenAIProvider(cfg.Precedent.Embedding.OpenAI)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create embedding provider: %w", err)
		}
		embedder = p
	case "static":
		embedder = embedding.NewStaticProvider(0)
	}

	var idx index.SimilarityIndex
	if embedder != nil {
		idx, err = index.New(index.Backend(cfg.Precedent.IndexBackend), cfg.Precedent.IndexPath)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create similarity index: %w", err)
		}
	}

	precedents, err := NewPrecedentService(store, embedder, idx, &cfg.Precedent.Search, storeMetrics, logger.With("component", "precedent"))
	if err != nil {
		store.Close()
		return nil, err
	}

	pruner, err := retention.NewPruner(store, &cfg.Retention, logger.With("component", "retention"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create pruner: %w", err)
	}

	var emitter *audit.Emitter
	var signer *audit.JSONLSigner
	if cfg.Audit.Enabled && opts.AuditTrailPath != "" {
		signer, err = audit.NewJSONLSigner(opts.AuditTrailPath)
		if err != nil {
			store.Close()
			return nil, err
		}
		emitter, err = audit.NewEmitter(signer, &audit.EmitterConfig{
			BufferSize:  cfg.Audit.BufferSize,
			SignTimeout: cfg.Audit.SignTimeout,
		}, logger.With("component", "audit"))
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create audit emitter: %w", err)
		}
	}

	engine, err := NewEngine(pool, aggregator, fb, precedents, emitter, decisionMetrics, logger.With("component", "decision"))
	if err != nil {
		store.Close()
		return nil, err
	}

	return &System{
		Engine:     engine,
		Registry:   registry,
		Precedents: precedents,
		Pruner:     pruner,
		Emitter:    emitter,
		signer:     signer,
	}, nil
}

// BuildRegistry constructs the critic registry from static definitions.
func BuildRegistry(defs []config.CriticDefinition) (*critics.Registry, error) {
	registry := critics.NewRegistry()
	for _, d := range defs {
		var critic critics.Critic
		switch d.Type {
		case "keyword":
			critic = critics.NewKeywordCritic(d.Name, d.Keywords, d.Confidence)
		case "length":
			critic = critics.NewLengthCritic(d.Name, d.MaxLength)
		default:
			return nil, fmt.Errorf("critic %q: unknown type %q", d.Name, d.Type)
		}

		if err := registry.Register(&critics.Registration{
			Critic:   critic,
			Weight:   d.Weight,
			Category: d.Category,
			Priority: d.Priority,
			Critical: d.Critical,
		}); err != nil {
			return nil, fmt.Errorf("register critic %q: %w", d.Name, err)
		}
	}
	return registry, nil
}

// Close shuts the system down: the emitter drains, then storage and the
// audit trail close.
func (s *System) Close() error {
	s.Pruner.Stop()

	var firstErr error
	if s.Emitter != nil {
		if err := s.Emitter.Close(); err != nil {
			firstErr = err
		}
	}
	if s.signer != nil {
		if err := s.signer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.Precedents.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
