package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains metric naming configuration.
type Config struct {
	// Namespace prefixes all metric names.
	// Default: "minos"
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{Namespace: "minos"}
}

// DecisionMetrics tracks the decision engine's activity.
//
// Metrics:
//   - minos_decisions_total: finalized decisions by verdict and path
//   - minos_aggregation_duration_seconds: aggregation latency
//   - minos_aggregation_ambiguity: ambiguity score distribution
//   - minos_fallback_triggers_total: fallback activations by trigger and strategy
//   - minos_critic_errors_total: ERROR reports by critic
type DecisionMetrics struct {
	decisionsTotal      *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
	ambiguity           prometheus.Histogram
	fallbackTotal       *prometheus.CounterVec
	criticErrorsTotal   *prometheus.CounterVec
}

// NewDecisionMetrics creates and registers decision metrics.
func NewDecisionMetrics(cfg *Config, registry *prometheus.Registry) *DecisionMetrics {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "decisions_total",
				Help:      "Total number of finalized decisions",
			},
			[]string{"verdict", "path"},
		),
		aggregationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "aggregation_duration_seconds",
				Help:      "Duration of verdict aggregation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
		),
		ambiguity: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "aggregation_ambiguity",
				Help:      "Distribution of aggregation ambiguity scores",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		fallbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "fallback_triggers_total",
				Help:      "Total number of fallback activations",
			},
			[]string{"trigger", "strategy"},
		),
		criticErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "critic_errors_total",
				Help:      "Total number of critic ERROR reports",
			},
			[]string{"critic"},
		),
	}

	registry.MustRegister(
		m.decisionsTotal,
		m.aggregationDuration,
		m.ambiguity,
		m.fallbackTotal,
		m.criticErrorsTotal,
	)

	return m
}

// RecordDecision records a finalized decision. path is "aggregation" or
// "fallback".
func (m *DecisionMetrics) RecordDecision(verdict, path string, duration time.Duration, ambiguity float64) {
	m.decisionsTotal.WithLabelValues(verdict, path).Inc()
	m.aggregationDuration.Observe(duration.Seconds())
	m.ambiguity.Observe(ambiguity)
}

// RecordFallback records a fallback activation.
func (m *DecisionMetrics) RecordFallback(trigger, strategy string) {
	m.fallbackTotal.WithLabelValues(trigger, strategy).Inc()
}

// RecordCriticError records an ERROR report from a critic.
func (m *DecisionMetrics) RecordCriticError(critic string) {
	m.criticErrorsTotal.WithLabelValues(critic).Inc()
}

// StoreMetrics tracks precedent store and search activity.
//
// Metrics:
//   - minos_precedents_stored_total: stored precedents by outcome (created, dedup)
//   - minos_precedent_search_duration_seconds: hybrid search latency by mode
type StoreMetrics struct {
	storedTotal    *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
}

// NewStoreMetrics creates and registers store metrics.
func NewStoreMetrics(cfg *Config, registry *prometheus.Registry) *StoreMetrics {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &StoreMetrics{
		storedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "precedents_stored_total",
				Help:      "Total number of precedent store operations",
			},
			[]string{"outcome"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "precedent_search_duration_seconds",
				Help:      "Duration of precedent searches in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
			[]string{"mode"},
		),
	}

	registry.MustRegister(m.storedTotal, m.searchDuration)
	return m
}

// RecordStore records a store operation. outcome is "created" or "dedup".
func (m *StoreMetrics) RecordStore(outcome string) {
	m.storedTotal.WithLabelValues(outcome).Inc()
}

// RecordSearch records a precedent search.
func (m *StoreMetrics) RecordSearch(mode string, duration time.Duration) {
	m.searchDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// Handler returns the HTTP handler exposing the registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
