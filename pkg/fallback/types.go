package fallback

import (
	"fmt"

	"mercator-hq/minos/pkg/verdict"
)

// Trigger classifies the failure mode that activated fallback.
type Trigger string

const (
	// TriggerAllCriticsFailed fires when every report is ERROR.
	TriggerAllCriticsFailed Trigger = "ALL_CRITICS_FAILED"

	// TriggerCriticalCriticFailed fires when a configured critical critic
	// reported ERROR.
	TriggerCriticalCriticFailed Trigger = "CRITICAL_CRITIC_FAILED"

	// TriggerMajorityCriticsFailed fires when more than half the reports
	// are ERROR.
	TriggerMajorityCriticsFailed Trigger = "MAJORITY_CRITICS_FAILED"

	// TriggerHighErrorRate fires when the error fraction exceeds the
	// configured threshold but is at most half.
	TriggerHighErrorRate Trigger = "HIGH_ERROR_RATE"

	// TriggerInsufficientConfidence fires when aggregation confidence is
	// below the hard floor.
	TriggerInsufficientConfidence Trigger = "INSUFFICIENT_CONFIDENCE"

	// TriggerTimeout fires when the caller flags the batch as timed out.
	TriggerTimeout Trigger = "TIMEOUT"
)

// Strategy selects how the substitute decision is produced.
type Strategy string

const (
	// StrategyConservative prefers the most restrictive surviving verdict,
	// never more permissive than REVIEW.
	StrategyConservative Strategy = "CONSERVATIVE"

	// StrategyPermissive prefers ALLOW when any valid report allows,
	// annotating the result with a risk warning.
	StrategyPermissive Strategy = "PERMISSIVE"

	// StrategyEscalate always defers to a human.
	StrategyEscalate Strategy = "ESCALATE"

	// StrategyFailSafe returns the configured static default verdict.
	StrategyFailSafe Strategy = "FAIL_SAFE"

	// StrategyMajority tallies verdicts among non-error reports.
	StrategyMajority Strategy = "MAJORITY"
)

// Result is the degraded-mode decision produced when a trigger fires.
type Result struct {
	// Triggered is true when fallback replaced the normal result.
	Triggered bool `json:"triggered"`

	// Trigger is the failure mode that activated fallback.
	Trigger Trigger `json:"trigger,omitempty"`

	// Strategy is the strategy that produced the verdict.
	Strategy Strategy `json:"strategy,omitempty"`

	// FallbackVerdict is the substitute decision.
	FallbackVerdict verdict.Verdict `json:"fallback_verdict,omitempty"`

	// Confidence is reduced relative to the best available critic
	// confidence. Never full confidence on a degraded path.
	Confidence float64 `json:"confidence"`

	// Reason explains the trigger and the strategy outcome.
	Reason string `json:"reason"`

	// Metadata carries strategy-specific annotations, e.g.
	// requires_human_review or risk_warning.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Config contains tunables for the fallback engine.
type Config struct {
	// Strategy selects the degraded-mode decision strategy.
	// Default: CONSERVATIVE
	Strategy Strategy `yaml:"strategy"`

	// CriticalCritics lists critics whose individual failure triggers
	// fallback regardless of the overall error rate.
	CriticalCritics []string `yaml:"critical_critics"`

	// ErrorRateThreshold is the error fraction above which HIGH_ERROR_RATE
	// fires (when at most half the critics failed).
	// Default: 0.5
	ErrorRateThreshold float64 `yaml:"error_rate_threshold"`

	// ConfidenceFloor is the aggregation confidence below which
	// INSUFFICIENT_CONFIDENCE fires.
	// Default: 0.25
	ConfidenceFloor float64 `yaml:"confidence_floor"`

	// FailSafeVerdict is the static verdict returned by FAIL_SAFE, and the
	// degraded result of MAJORITY when every report is an error.
	// Default: REVIEW
	FailSafeVerdict verdict.Verdict `yaml:"fail_safe_verdict"`

	// ConfidenceDamping scales the best surviving critic confidence to
	// produce the fallback confidence. Must be < 1.
	// Default: 0.75
	ConfidenceDamping float64 `yaml:"confidence_damping"`
}

// DefaultConfig returns the default fallback configuration.
func DefaultConfig() *Config {
	return &Config{
		Strategy:           StrategyConservative,
		ErrorRateThreshold: 0.5,
		ConfidenceFloor:    0.25,
		FailSafeVerdict:    verdict.VerdictReview,
		ConfidenceDamping:  0.75,
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyConservative, StrategyPermissive, StrategyEscalate, StrategyFailSafe, StrategyMajority:
	default:
		return fmt.Errorf("unknown fallback strategy %q", c.Strategy)
	}
	if c.ErrorRateThreshold < 0 || c.ErrorRateThreshold > 1 {
		return fmt.Errorf("error_rate_threshold must be in [0, 1], got %v", c.ErrorRateThreshold)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence_floor must be in [0, 1], got %v", c.ConfidenceFloor)
	}
	if c.ConfidenceDamping <= 0 || c.ConfidenceDamping >= 1 {
		return fmt.Errorf("confidence_damping must be in (0, 1), got %v", c.ConfidenceDamping)
	}
	if !c.FailSafeVerdict.Valid() || c.FailSafeVerdict.IsError() {
		return fmt.Errorf("fail_safe_verdict %q is not a usable verdict", c.FailSafeVerdict)
	}
	return nil
}
