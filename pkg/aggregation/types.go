package aggregation

import (
	"mercator-hq/minos/pkg/verdict"
)

// Result is the outcome of aggregating one batch of evaluator reports.
// It is created once per request and never mutated after construction.
type Result struct {
	// OverallVerdict is the combined decision.
	OverallVerdict verdict.Verdict `json:"overall_verdict"`

	// VerdictScores maps each non-ERROR verdict present in the input to its
	// weighted score.
	VerdictScores map[verdict.Verdict]float64 `json:"verdict_scores"`

	// AvgConfidence is the mean confidence across non-ERROR reports.
	AvgConfidence float64 `json:"avg_confidence"`

	// Ambiguity measures how contested the decision is, in [0, 1].
	// Zero for a single contributor or unanimous verdicts.
	Ambiguity float64 `json:"ambiguity"`

	// Contested is true when Ambiguity reaches the configured threshold.
	// Callers are expected to treat contested results as escalation
	// candidates.
	Contested bool `json:"contested"`

	// ErrorCount is the number of reports with verdict ERROR.
	ErrorCount int `json:"error_count"`

	// ErrorRate is ErrorCount divided by the total report count.
	ErrorRate float64 `json:"error_rate"`

	// Reason explains how the overall verdict was reached.
	Reason string `json:"reason"`
}
