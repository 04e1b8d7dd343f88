package aggregation

import (
	"strings"
	"testing"

	"mercator-hq/minos/pkg/verdict"
)

func report(name string, v verdict.Verdict, confidence, weight float64) *verdict.EvaluatorReport {
	return &verdict.EvaluatorReport{
		CriticName: name,
		Verdict:    v,
		Confidence: confidence,
		Weight:     weight,
	}
}

func newAggregator(t *testing.T, config *Config) *Aggregator {
	t.Helper()
	a, err := New(config, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func TestAggregate_EmptyInput(t *testing.T) {
	a := newAggregator(t, nil)

	result, err := a.Aggregate(nil)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if result.OverallVerdict != verdict.VerdictReview {
		t.Errorf("verdict = %v, want REVIEW", result.OverallVerdict)
	}
	if result.AvgConfidence != 0 {
		t.Errorf("confidence = %v, want 0", result.AvgConfidence)
	}
	if result.Reason != "no results" {
		t.Errorf("reason = %q, want %q", result.Reason, "no results")
	}
}

func TestAggregate_AllErrors(t *testing.T) {
	a := newAggregator(t, nil)

	reports := []*verdict.EvaluatorReport{
		verdict.ErrorReport("c1", nil),
		verdict.ErrorReport("c2", nil),
		verdict.ErrorReport("c3", nil),
	}

	result, err := a.Aggregate(reports)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if result.OverallVerdict != verdict.VerdictError {
		t.Errorf("verdict = %v, want ERROR", result.OverallVerdict)
	}
	if result.ErrorCount != len(reports) {
		t.Errorf("ErrorCount = %d, want %d", result.ErrorCount, len(reports))
	}
	if result.ErrorRate != 1.0 {
		t.Errorf("ErrorRate = %v, want 1.0", result.ErrorRate)
	}
}

func TestAggregate_ErrorRateForcesReview(t *testing.T) {
	a := newAggregator(t, nil)

	// 2 of 3 critics failed: above the default 0.5 threshold but not all.
	reports := []*verdict.EvaluatorReport{
		report("c1", verdict.VerdictAllow, 0.9, 1.0),
		verdict.ErrorReport("c2", nil),
		verdict.ErrorReport("c3", nil),
	}

	result, err := a.Aggregate(reports)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if result.OverallVerdict != verdict.VerdictReview {
		t.Errorf("verdict = %v, want REVIEW", result.OverallVerdict)
	}
	if !strings.Contains(result.Reason, "failure rate") {
		t.Errorf("reason %q should cite the failure rate", result.Reason)
	}
}

func TestAggregate_MalformedReportRejected(t *testing.T) {
	a := newAggregator(t, nil)

	reports := []*verdict.EvaluatorReport{
		report("c1", verdict.VerdictAllow, 1.5, 1.0), // confidence out of range
	}
	if _, err := a.Aggregate(reports); err == nil {
		t.Fatal("expected validation error for malformed report")
	}

	if _, err := a.Aggregate([]*verdict.EvaluatorReport{nil}); err == nil {
		t.Fatal("expected validation error for nil report")
	}
}

func TestAggregate_BlockThreshold(t *testing.T) {
	// ALLOW 0.9 vs BLOCK 0.85 with equal weights: plurality favors ALLOW
	// unless the block threshold is low enough for BLOCK's score to trip it.
	reports := func() []*verdict.EvaluatorReport {
		return []*verdict.EvaluatorReport{
			report("allow-critic", verdict.VerdictAllow, 0.9, 1.0),
			report("block-critic", verdict.VerdictBlock, 0.85, 1.0),
		}
	}

	t.Run("default threshold lets plurality win", func(t *testing.T) {
		a := newAggregator(t, &Config{BlockThreshold: 2.0, ErrorReviewThreshold: 0.5, AmbiguityThreshold: 1.0})
		result, err := a.Aggregate(reports())
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}
		if result.OverallVerdict != verdict.VerdictAllow {
			t.Errorf("verdict = %v, want ALLOW", result.OverallVerdict)
		}
	})

	t.Run("low threshold forces block", func(t *testing.T) {
		a := newAggregator(t, &Config{BlockThreshold: 0.5, ErrorReviewThreshold: 0.5, AmbiguityThreshold: 1.0})
		result, err := a.Aggregate(reports())
		if err != nil {
			t.Fatalf("Aggregate failed: %v", err)
		}
		if result.OverallVerdict != verdict.VerdictBlock {
			t.Errorf("verdict = %v, want BLOCK", result.OverallVerdict)
		}
		if !strings.Contains(result.Reason, "threshold exceeded") {
			t.Errorf("reason %q should mention the threshold", result.Reason)
		}
	})
}

func TestAggregate_OverridePriority(t *testing.T) {
	a := newAggregator(t, nil)

	override := report("policy-override", verdict.VerdictBlock, 0.6, 1.0)
	override.Priority = verdict.PriorityOverride

	reports := []*verdict.EvaluatorReport{
		report("c1", verdict.VerdictAllow, 0.95, 5.0),
		report("c2", verdict.VerdictAllow, 0.95, 5.0),
		override,
	}

	result, err := a.Aggregate(reports)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if result.OverallVerdict != verdict.VerdictBlock {
		t.Errorf("verdict = %v, want BLOCK from override", result.OverallVerdict)
	}
	if !strings.Contains(result.Reason, "policy-override") {
		t.Errorf("reason %q should name the overriding critic", result.Reason)
	}
	if override.AppliedWeight <= override.Weight {
		t.Errorf("AppliedWeight = %v, expected override multiplier applied", override.AppliedWeight)
	}
}

func TestAggregate_WeightMonotonicity(t *testing.T) {
	a := newAggregator(t, &Config{BlockThreshold: 100, ErrorReviewThreshold: 0.5, AmbiguityThreshold: 1.0})

	// Equal weights: REVIEW wins on score (two critics vs one).
	base := []*verdict.EvaluatorReport{
		report("c1", verdict.VerdictAllow, 0.8, 1.0),
		report("c2", verdict.VerdictReview, 0.8, 1.0),
		report("c3", verdict.VerdictReview, 0.8, 1.0),
	}
	result, err := a.Aggregate(base)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if result.OverallVerdict != verdict.VerdictReview {
		t.Fatalf("baseline verdict = %v, want REVIEW", result.OverallVerdict)
	}

	// Raising the ALLOW critic's weight flips the outcome.
	boosted := []*verdict.EvaluatorReport{
		report("c1", verdict.VerdictAllow, 0.8, 4.0),
		report("c2", verdict.VerdictReview, 0.8, 1.0),
		report("c3", verdict.VerdictReview, 0.8, 1.0),
	}
	result, err = a.Aggregate(boosted)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if result.OverallVerdict != verdict.VerdictAllow {
		t.Errorf("boosted verdict = %v, want ALLOW", result.OverallVerdict)
	}
}

func TestAggregate_SingleReportAmbiguityZero(t *testing.T) {
	a := newAggregator(t, nil)

	result, err := a.Aggregate([]*verdict.EvaluatorReport{
		report("c1", verdict.VerdictAllow, 0.9, 1.0),
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if result.Ambiguity != 0 {
		t.Errorf("Ambiguity = %v, want 0 for a single contributor", result.Ambiguity)
	}
	if result.Contested {
		t.Error("single contributor should not be contested")
	}
}

func TestAggregate_UnanimousAmbiguityZero(t *testing.T) {
	a := newAggregator(t, nil)

	result, err := a.Aggregate([]*verdict.EvaluatorReport{
		report("c1", verdict.VerdictBlock, 0.9, 1.0),
		report("c2", verdict.VerdictBlock, 0.8, 1.0),
		report("c3", verdict.VerdictBlock, 0.7, 1.0),
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if result.Ambiguity != 0 {
		t.Errorf("Ambiguity = %v, want 0 for unanimous verdicts", result.Ambiguity)
	}
}

func TestAggregate_ContestedFlag(t *testing.T) {
	a := newAggregator(t, &Config{BlockThreshold: 100, ErrorReviewThreshold: 0.5, AmbiguityThreshold: 0.8})

	// Two verdicts with near-equal scores: ambiguity close to 1.
	result, err := a.Aggregate([]*verdict.EvaluatorReport{
		report("c1", verdict.VerdictAllow, 0.9, 1.0),
		report("c2", verdict.VerdictBlock, 0.89, 1.0),
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if result.Ambiguity < 0.8 {
		t.Errorf("Ambiguity = %v, want >= 0.8", result.Ambiguity)
	}
	if !result.Contested {
		t.Error("near-tied verdicts should be contested")
	}
}

func TestAggregate_AvgConfidenceSkipsErrors(t *testing.T) {
	a := newAggregator(t, nil)

	result, err := a.Aggregate([]*verdict.EvaluatorReport{
		report("c1", verdict.VerdictAllow, 0.8, 1.0),
		report("c2", verdict.VerdictAllow, 0.6, 1.0),
		verdict.ErrorReport("c3", nil),
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	want := (0.8 + 0.6) / 2
	if diff := result.AvgConfidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AvgConfidence = %v, want %v", result.AvgConfidence, want)
	}
	if result.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", result.ErrorCount)
	}
}

func TestAggregate_ErrorReportsGetZeroAppliedWeight(t *testing.T) {
	a := newAggregator(t, nil)

	errReport := verdict.ErrorReport("c2", nil)
	_, err := a.Aggregate([]*verdict.EvaluatorReport{
		report("c1", verdict.VerdictAllow, 0.9, 1.0),
		errReport,
	})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if errReport.AppliedWeight != 0 {
		t.Errorf("error report AppliedWeight = %v, want 0", errReport.AppliedWeight)
	}
}

func TestAggregate_MoralModeMultipliers(t *testing.T) {
	cfg := &Config{
		BlockThreshold:       100,
		ErrorReviewThreshold: 0.5,
		AmbiguityThreshold:   1.0,
		MoralMode:            ModeDeontological,
		CategoryMultipliers: map[MoralMode]map[string]float64{
			ModeDeontological: {"rights": 3.0},
		},
	}
	a := newAggregator(t, cfg)

	rights := report("rights-critic", verdict.VerdictBlock, 0.8, 1.0)
	rights.Category = "rights"

	outcome1 := report("outcome-1", verdict.VerdictAllow, 0.8, 1.0)
	outcome1.Category = "outcome"
	outcome2 := report("outcome-2", verdict.VerdictAllow, 0.8, 1.0)
	outcome2.Category = "outcome"

	result, err := a.Aggregate([]*verdict.EvaluatorReport{rights, outcome1, outcome2})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	// 0.8*3.0 = 2.4 for BLOCK vs 0.8*2 = 1.6 for ALLOW.
	if result.OverallVerdict != verdict.VerdictBlock {
		t.Errorf("verdict = %v, want BLOCK under deontological weighting", result.OverallVerdict)
	}
}

func TestPluralityVerdict_TieBreaks(t *testing.T) {
	a := newAggregator(t, &Config{BlockThreshold: 100, ErrorReviewThreshold: 0.5, AmbiguityThreshold: 1.0})

	// Same weighted score for ALLOW and BLOCK; BLOCK has the higher
	// average confidence and must win.
	reports := []*verdict.EvaluatorReport{
		report("a1", verdict.VerdictAllow, 0.4, 1.0),
		report("a2", verdict.VerdictAllow, 0.4, 1.0),
		report("b1", verdict.VerdictBlock, 0.8, 1.0),
	}
	result, err := a.Aggregate(reports)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if result.OverallVerdict != verdict.VerdictBlock {
		t.Errorf("verdict = %v, want BLOCK by confidence tie-break", result.OverallVerdict)
	}
}
