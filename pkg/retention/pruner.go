package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/precedent/storage"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain precedents.
	// 0 means keep precedents forever (no age-based pruning).
	// Default: 180
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords caps the store size; the oldest records beyond the cap
	// are deleted. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 180,
		PruneSchedule: "0 3 * * *",
		MaxRecords:    0,
	}
}

// Pruner enforces the retention policy on the precedent store.
type Pruner struct {
	store  storage.Storage
	config *Config
	logger *slog.Logger
	cron   *cron.Cron
}

// NewPruner creates a retention pruner.
func NewPruner(store storage.Storage, config *Config, logger *slog.Logger) (*Pruner, error) {
	if store == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.RetentionDays < 0 {
		return nil, fmt.Errorf("retention_days must be non-negative, got %d", config.RetentionDays)
	}
	if logger == nil {
		logger = slog.Default().With("component", "retention")
	}
	return &Pruner{
		store:  store,
		config: config,
		logger: logger,
	}, nil
}

// Start schedules pruning according to the configured cron expression.
func (p *Pruner) Start() error {
	if p.config.PruneSchedule == "" {
		return nil
	}

	p.cron = cron.New()
	_, err := p.cron.AddFunc(p.config.PruneSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := p.Prune(ctx); err != nil {
			p.logger.Error("scheduled prune failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.config.PruneSchedule, err)
	}

	p.cron.Start()
	p.logger.Info("retention pruning scheduled",
		"schedule", p.config.PruneSchedule,
		"retention_days", p.config.RetentionDays,
	)
	return nil
}

// Stop cancels scheduled pruning.
func (p *Pruner) Stop() {
	if p.cron != nil {
		p.cron.Stop()
	}
}

// Prune runs one pruning pass and returns the number of precedents deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)
		n, err := p.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune aged precedents: %w", err)
		}
		total += n
	}

	if p.config.MaxRecords > 0 {
		n, err := p.enforceCap(ctx)
		if err != nil {
			return total, err
		}
		total += n
	}

	if total > 0 {
		p.logger.Info("precedents pruned", "deleted", total)
	}
	return total, nil
}

// enforceCap deletes the oldest precedents beyond the max-records cap.
func (p *Pruner) enforceCap(ctx context.Context) (int64, error) {
	count, err := p.store.Count(ctx, &precedent.Query{})
	if err != nil {
		return 0, fmt.Errorf("count precedents: %w", err)
	}
	excess := count - p.config.MaxRecords
	if excess <= 0 {
		return 0, nil
	}

	// Oldest first: query everything and walk from the tail of the
	// newest-first ordering.
	all, err := p.store.Query(ctx, &precedent.Query{Limit: int(count)})
	if err != nil {
		return 0, fmt.Errorf("list precedents: %w", err)
	}

	var deleted int64
	for i := len(all) - 1; i >= 0 && deleted < excess; i-- {
		ok, err := p.store.Delete(ctx, all[i].ID)
		if err != nil {
			return deleted, fmt.Errorf("delete precedent %s: %w", all[i].ID, err)
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}
