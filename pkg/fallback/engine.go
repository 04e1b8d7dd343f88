package fallback

import (
	"fmt"
	"log/slog"
	"sort"

	"mercator-hq/minos/pkg/aggregation"
	"mercator-hq/minos/pkg/verdict"
)

// Context carries caller-supplied signals that are not derivable from the
// report batch itself.
type Context struct {
	// TimedOut indicates the evaluation batch exceeded its deadline.
	TimedOut bool
}

// Engine classifies failure modes and produces degraded-mode decisions.
type Engine struct {
	config *Config
	logger *slog.Logger
}

// NewEngine creates a fallback engine with the given configuration.
func NewEngine(config *Config, logger *slog.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fallback config: %w", err)
	}
	if logger == nil {
		logger = slog.Default().With("component", "fallback")
	}
	return &Engine{config: config, logger: logger}, nil
}

// ShouldFallback checks the trigger conditions in precedence order and
// returns the first that fires. The aggregation result is optional; when nil
// the confidence-floor check is skipped.
func (e *Engine) ShouldFallback(reports []*verdict.EvaluatorReport, agg *aggregation.Result, fctx *Context) (bool, Trigger, string) {
	if len(reports) == 0 {
		if fctx != nil && fctx.TimedOut {
			return true, TriggerTimeout, "evaluation timed out before any critic reported"
		}
		return false, "", ""
	}

	errorCount := 0
	for _, r := range reports {
		if r != nil && r.Verdict.IsError() {
			errorCount++
		}
	}
	errorRate := float64(errorCount) / float64(len(reports))

	// Precedence order: first match wins.
	if errorCount == len(reports) {
		return true, TriggerAllCriticsFailed, "all critics failed"
	}

	for _, name := range e.config.CriticalCritics {
		for _, r := range reports {
			if r != nil && r.CriticName == name && r.Verdict.IsError() {
				return true, TriggerCriticalCriticFailed,
					fmt.Sprintf("critical critic %q failed", name)
			}
		}
	}

	if float64(errorCount) > float64(len(reports))/2 {
		return true, TriggerMajorityCriticsFailed,
			fmt.Sprintf("%d of %d critics failed", errorCount, len(reports))
	}

	if errorRate > e.config.ErrorRateThreshold {
		return true, TriggerHighErrorRate,
			fmt.Sprintf("critic error rate %.0f%% exceeds %.0f%%", errorRate*100, e.config.ErrorRateThreshold*100)
	}

	if agg != nil && agg.AvgConfidence < e.config.ConfidenceFloor {
		return true, TriggerInsufficientConfidence,
			fmt.Sprintf("aggregate confidence %.2f below floor %.2f", agg.AvgConfidence, e.config.ConfidenceFloor)
	}

	if fctx != nil && fctx.TimedOut {
		return true, TriggerTimeout, "evaluation timed out"
	}

	return false, "", ""
}

// ApplyFallback produces the degraded-mode decision for a fired trigger.
// It never fails: malformed or empty input yields a well-formed result
// carrying the fail-safe verdict and a textual reason.
func (e *Engine) ApplyFallback(reports []*verdict.EvaluatorReport, trigger Trigger, fctx *Context) *Result {
	valid := validReports(reports)

	result := &Result{
		Triggered: true,
		Trigger:   trigger,
		Strategy:  e.config.Strategy,
		Metadata:  map[string]string{},
	}

	switch e.config.Strategy {
	case StrategyConservative:
		result.FallbackVerdict, result.Reason = e.conservative(valid)

	case StrategyPermissive:
		result.FallbackVerdict, result.Reason = e.permissive(valid)
		result.Metadata["risk_warning"] = "permissive fallback applied under degraded evaluation"

	case StrategyEscalate:
		result.FallbackVerdict = verdict.VerdictReview
		result.Reason = "escalation strategy: deferring to human review"
		result.Metadata["requires_human_review"] = "true"

	case StrategyFailSafe:
		result.FallbackVerdict = e.config.FailSafeVerdict
		result.Reason = fmt.Sprintf("fail-safe default %s applied", e.config.FailSafeVerdict)

	case StrategyMajority:
		result.FallbackVerdict, result.Reason = e.majority(valid)

	default:
		// Config validation rules this out; keep a safe path anyway.
		result.FallbackVerdict = verdict.VerdictReview
		result.Reason = fmt.Sprintf("unknown strategy %q, defaulting to REVIEW", e.config.Strategy)
	}

	result.Confidence = e.degradedConfidence(valid)
	result.Reason = fmt.Sprintf("%s (trigger: %s)", result.Reason, trigger)

	e.logger.Warn("fallback applied",
		"trigger", trigger,
		"strategy", e.config.Strategy,
		"verdict", result.FallbackVerdict,
		"confidence", result.Confidence,
	)

	return result
}

// conservative picks the most restrictive surviving verdict, floored at
// REVIEW. A degraded batch never yields ALLOW, even when every surviving
// critic allowed.
func (e *Engine) conservative(valid []*verdict.EvaluatorReport) (verdict.Verdict, string) {
	if len(valid) == 0 {
		return verdict.VerdictReview, "no valid reports, defaulting to REVIEW"
	}
	most := valid[0].Verdict
	for _, r := range valid[1:] {
		if r.Verdict.Restrictiveness() > most.Restrictiveness() {
			most = r.Verdict
		}
	}
	if most.Restrictiveness() < verdict.VerdictReview.Restrictiveness() {
		return verdict.VerdictReview, "no restrictive verdict survived, defaulting to REVIEW"
	}
	return most, fmt.Sprintf("most restrictive surviving verdict %s", most)
}

// permissive prefers ALLOW when any valid report allows.
func (e *Engine) permissive(valid []*verdict.EvaluatorReport) (verdict.Verdict, string) {
	for _, r := range valid {
		if r.Verdict == verdict.VerdictAllow {
			return verdict.VerdictAllow, "permissive strategy: at least one critic allowed"
		}
	}
	if len(valid) == 0 {
		return verdict.VerdictReview, "no valid reports, defaulting to REVIEW"
	}
	return e.conservative(valid)
}

// majority tallies verdicts among non-error reports; an all-error batch
// degrades to the fail-safe default.
func (e *Engine) majority(valid []*verdict.EvaluatorReport) (verdict.Verdict, string) {
	if len(valid) == 0 {
		return e.config.FailSafeVerdict,
			fmt.Sprintf("no valid reports, degrading to fail-safe %s", e.config.FailSafeVerdict)
	}

	counts := map[verdict.Verdict]int{}
	for _, r := range valid {
		counts[r.Verdict]++
	}

	type tally struct {
		v verdict.Verdict
		n int
	}
	tallies := make([]tally, 0, len(counts))
	for v, n := range counts {
		tallies = append(tallies, tally{v, n})
	}
	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].n != tallies[j].n {
			return tallies[i].n > tallies[j].n
		}
		// Ties break toward the more restrictive verdict.
		return tallies[i].v.Restrictiveness() > tallies[j].v.Restrictiveness()
	})

	winner := tallies[0]
	return winner.v, fmt.Sprintf("majority verdict %s (%d of %d)", winner.v, winner.n, len(valid))
}

// degradedConfidence caps fallback confidence below the best surviving
// critic confidence. With no valid reports the confidence is a nominal 0.1.
func (e *Engine) degradedConfidence(valid []*verdict.EvaluatorReport) float64 {
	if len(valid) == 0 {
		return 0.1
	}
	best := 0.0
	for _, r := range valid {
		if r.Confidence > best {
			best = r.Confidence
		}
	}
	c := best * e.config.ConfidenceDamping
	if c < 0.1 {
		c = 0.1
	}
	return c
}

// validReports filters out nil and ERROR reports.
func validReports(reports []*verdict.EvaluatorReport) []*verdict.EvaluatorReport {
	valid := make([]*verdict.EvaluatorReport, 0, len(reports))
	for _, r := range reports {
		if r != nil && !r.Verdict.IsError() {
			valid = append(valid, r)
		}
	}
	return valid
}
