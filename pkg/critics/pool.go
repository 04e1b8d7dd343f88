package critics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/minos/pkg/verdict"
)

// PoolConfig contains configuration for the evaluation pool.
type PoolConfig struct {
	// MaxWorkers bounds concurrent critic evaluations.
	// Default: 8
	MaxWorkers int `yaml:"max_workers"`

	// CriticTimeout is the per-critic evaluation deadline.
	// Default: 10s
	CriticTimeout time.Duration `yaml:"critic_timeout"`

	// ConfigVersion tags cache keys so a config change invalidates
	// previously cached results.
	ConfigVersion string `yaml:"config_version"`
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxWorkers:    8,
		CriticTimeout: 10 * time.Second,
	}
}

// Pool fans a request out across the registered critics with a bounded
// number of workers. Every registered critic yields exactly one report:
// failures, panics, and timeouts become ERROR reports rather than aborting
// the batch.
type Pool struct {
	registry *Registry
	cache    *ResultCache
	config   *PoolConfig
	logger   *slog.Logger
}

// NewPool creates an evaluation pool. The cache is optional.
func NewPool(registry *Registry, cache *ResultCache, config *PoolConfig, logger *slog.Logger) (*Pool, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 8
	}
	if config.CriticTimeout <= 0 {
		config.CriticTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default().With("component", "critics.pool")
	}
	return &Pool{registry: registry, cache: cache, config: config, logger: logger}, nil
}

// Evaluate runs all registered critics against the input and returns one
// report per critic, ordered by critic name. Cancelling ctx abandons the
// batch; partial reports are simply discarded by the caller.
func (p *Pool) Evaluate(ctx context.Context, input *Input) []*verdict.EvaluatorReport {
	regs := p.registry.All()
	if len(regs) == 0 {
		return nil
	}

	reports := make([]*verdict.EvaluatorReport, len(regs))
	sem := make(chan struct{}, p.config.MaxWorkers)
	var wg sync.WaitGroup

	for i, reg := range regs {
		wg.Add(1)
		go func(i int, reg *Registration) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				reports[i] = p.annotate(reg, verdict.ErrorReport(reg.Critic.Name(), ctx.Err()))
				return
			}

			reports[i] = p.evaluateOne(ctx, reg, input)
		}(i, reg)
	}
	wg.Wait()

	return reports
}

// evaluateOne runs a single critic with its deadline, consulting the cache
// first.
func (p *Pool) evaluateOne(ctx context.Context, reg *Registration, input *Input) *verdict.EvaluatorReport {
	name := reg.Critic.Name()

	if p.cache != nil {
		if cached, ok := p.cache.Get(name, input, p.config.ConfigVersion); ok {
			return p.annotate(reg, cached)
		}
	}

	criticCtx, cancel := context.WithTimeout(ctx, p.config.CriticTimeout)
	defer cancel()

	type outcome struct {
		report *verdict.EvaluatorReport
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("critic panic: %v", r)}
			}
		}()
		report, err := reg.Critic.Evaluate(criticCtx, input)
		done <- outcome{report: report, err: err}
	}()

	var report *verdict.EvaluatorReport
	select {
	case <-criticCtx.Done():
		// The critic goroutine is abandoned; its deferred send lands in
		// the buffered channel and is garbage collected with it.
		report = verdict.ErrorReport(name, fmt.Errorf("critic timed out after %s", p.config.CriticTimeout))
		p.logger.Warn("critic timed out", "critic", name, "timeout", p.config.CriticTimeout)

	case out := <-done:
		switch {
		case out.err != nil:
			report = verdict.ErrorReport(name, out.err)
			p.logger.Warn("critic failed", "critic", name, "error", out.err)
		case out.report == nil:
			report = verdict.ErrorReport(name, fmt.Errorf("critic returned no report"))
		case out.report.Validate() != nil:
			report = verdict.ErrorReport(name, out.report.Validate())
		default:
			report = out.report
		}
	}

	if p.cache != nil && !report.Verdict.IsError() {
		p.cache.Put(name, input, p.config.ConfigVersion, report)
	}

	return p.annotate(reg, report)
}

// annotate stamps the registration's aggregation attributes onto a report.
func (p *Pool) annotate(reg *Registration, report *verdict.EvaluatorReport) *verdict.EvaluatorReport {
	report.Weight = reg.Weight
	report.Category = reg.Category
	if reg.Priority != "" {
		report.Priority = reg.Priority
	}
	return report
}
