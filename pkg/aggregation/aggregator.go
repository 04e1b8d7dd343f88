package aggregation

import (
	"fmt"
	"log/slog"
	"sort"

	"mercator-hq/minos/pkg/verdict"
)

// Aggregator combines evaluator reports into a single Result.
type Aggregator struct {
	config *Config
	logger *slog.Logger
}

// New creates an aggregator with the given configuration.
func New(config *Config, logger *slog.Logger) (*Aggregator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid aggregation config: %w", err)
	}
	if logger == nil {
		logger = slog.Default().With("component", "aggregation")
	}
	return &Aggregator{config: config, logger: logger}, nil
}

// Aggregate combines a batch of reports into one Result.
//
// Empty input is a degenerate but legal case and resolves to REVIEW with
// zero confidence. A malformed report is an input error: the batch is
// rejected with a validation error and aggregation state is untouched.
func (a *Aggregator) Aggregate(reports []*verdict.EvaluatorReport) (*Result, error) {
	if len(reports) == 0 {
		return &Result{
			OverallVerdict: verdict.VerdictReview,
			VerdictScores:  map[verdict.Verdict]float64{},
			Reason:         "no results",
		}, nil
	}

	for i, r := range reports {
		if r == nil {
			return nil, &verdict.ValidationError{Field: "reports", Message: fmt.Sprintf("report %d is nil", i)}
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("report %d (%s): %w", i, r.CriticName, err)
		}
	}

	errorCount := 0
	for _, r := range reports {
		if r.Verdict.IsError() {
			errorCount++
		}
	}
	errorRate := float64(errorCount) / float64(len(reports))

	result := &Result{
		VerdictScores: map[verdict.Verdict]float64{},
		ErrorCount:    errorCount,
		ErrorRate:     errorRate,
	}

	// Score non-ERROR reports, recording the applied weight on each report.
	var confSum float64
	var override *verdict.EvaluatorReport
	valid := 0
	for _, r := range reports {
		if r.Verdict.IsError() {
			r.AppliedWeight = 0
			continue
		}
		w := a.effectiveWeight(r)
		r.AppliedWeight = w
		result.VerdictScores[r.Verdict] += r.Confidence * w
		confSum += r.Confidence
		valid++
		if r.Priority == verdict.PriorityOverride && override == nil {
			override = r
		}
	}
	if valid > 0 {
		result.AvgConfidence = confSum / float64(valid)
	}

	if errorCount == len(reports) {
		result.OverallVerdict = verdict.VerdictError
		result.Reason = "all critics failed"
		return result, nil
	}

	if errorRate > a.config.ErrorReviewThreshold {
		result.OverallVerdict = verdict.VerdictReview
		result.Reason = fmt.Sprintf("critic failure rate %.0f%% exceeds %.0f%%",
			errorRate*100, a.config.ErrorReviewThreshold*100)
		result.Ambiguity = a.ambiguity(reports, result.VerdictScores)
		result.Contested = result.Ambiguity >= a.config.AmbiguityThreshold
		return result, nil
	}

	result.Ambiguity = a.ambiguity(reports, result.VerdictScores)
	result.Contested = result.Ambiguity >= a.config.AmbiguityThreshold

	switch {
	case override != nil:
		result.OverallVerdict = override.Verdict
		result.Reason = fmt.Sprintf("Override by critic %q", override.CriticName)

	case result.VerdictScores[verdict.VerdictBlock] >= a.config.BlockThreshold:
		result.OverallVerdict = verdict.VerdictBlock
		result.Reason = fmt.Sprintf("block threshold exceeded (%.2f >= %.2f)",
			result.VerdictScores[verdict.VerdictBlock], a.config.BlockThreshold)

	default:
		winner := a.pluralityVerdict(reports, result.VerdictScores)
		result.OverallVerdict = winner
		result.Reason = fmt.Sprintf("plurality verdict (score %.2f)", result.VerdictScores[winner])
	}

	a.logger.Debug("aggregated reports",
		"report_count", len(reports),
		"error_count", errorCount,
		"verdict", result.OverallVerdict,
		"ambiguity", result.Ambiguity,
	)

	return result, nil
}

// effectiveWeight computes weight × priority multiplier × moral-mode
// multiplier for a non-ERROR report.
func (a *Aggregator) effectiveWeight(r *verdict.EvaluatorReport) float64 {
	w := r.Weight
	if r.Priority == verdict.PriorityOverride {
		w *= overrideMultiplier
	}
	w *= a.config.categoryMultiplier(r.Category)
	return w
}

// pluralityVerdict returns the verdict with the highest weighted score.
// Ties break toward the bucket with the higher average confidence; remaining
// ties break by verdict name for determinism.
func (a *Aggregator) pluralityVerdict(reports []*verdict.EvaluatorReport, scores map[verdict.Verdict]float64) verdict.Verdict {
	type bucket struct {
		v       verdict.Verdict
		score   float64
		avgConf float64
	}

	buckets := make([]bucket, 0, len(scores))
	for v, score := range scores {
		var sum float64
		var n int
		for _, r := range reports {
			if r.Verdict == v {
				sum += r.Confidence
				n++
			}
		}
		b := bucket{v: v, score: score}
		if n > 0 {
			b.avgConf = sum / float64(n)
		}
		buckets = append(buckets, b)
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].score != buckets[j].score {
			return buckets[i].score > buckets[j].score
		}
		if buckets[i].avgConf != buckets[j].avgConf {
			return buckets[i].avgConf > buckets[j].avgConf
		}
		return buckets[i].v < buckets[j].v
	})

	return buckets[0].v
}
