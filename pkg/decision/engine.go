package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/minos/pkg/aggregation"
	"mercator-hq/minos/pkg/audit"
	"mercator-hq/minos/pkg/critics"
	"mercator-hq/minos/pkg/fallback"
	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/precedent/storage"
	"mercator-hq/minos/pkg/telemetry/metrics"
	"mercator-hq/minos/pkg/verdict"
)

// Request is one input submitted for judgment.
type Request struct {
	// RequestID identifies the request. Generated when empty.
	RequestID string `json:"request_id"`

	// InputText is the text being judged.
	InputText string `json:"input_text"`

	// Context holds request context attributes.
	Context map[string]string `json:"context,omitempty"`
}

// Decision is the finalized outcome for one request.
type Decision struct {
	// RequestID identifies the originating request.
	RequestID string `json:"request_id"`

	// Verdict is the final decision.
	Verdict verdict.Verdict `json:"verdict"`

	// Confidence is the decision confidence.
	Confidence float64 `json:"confidence"`

	// Reason explains how the verdict was reached.
	Reason string `json:"reason"`

	// Escalated is true when the decision requires a human.
	Escalated bool `json:"escalated"`

	// Aggregation is the aggregation result, when the normal path ran.
	Aggregation *aggregation.Result `json:"aggregation,omitempty"`

	// Fallback is set when the fallback path produced the verdict.
	Fallback *fallback.Result `json:"fallback,omitempty"`

	// Reports are the per-critic reports behind the decision.
	Reports []*verdict.EvaluatorReport `json:"reports,omitempty"`

	// PrecedentID is the stored precedent id, when recorded.
	PrecedentID string `json:"precedent_id,omitempty"`

	// Duration is the end-to-end pipeline latency.
	Duration time.Duration `json:"duration"`
}

// Engine runs the full decision pipeline.
type Engine struct {
	pool       *critics.Pool
	aggregator *aggregation.Aggregator
	fallback   *fallback.Engine
	precedents *PrecedentService
	emitter    *audit.Emitter
	metrics    *metrics.DecisionMetrics
	logger     *slog.Logger
}

// NewEngine assembles the decision pipeline. precedents, emitter, and
// decisionMetrics may be nil; the corresponding stages are skipped.
func NewEngine(pool *critics.Pool, aggregator *aggregation.Aggregator, fb *fallback.Engine, precedents *PrecedentService, emitter *audit.Emitter, decisionMetrics *metrics.DecisionMetrics, logger *slog.Logger) (*Engine, error) {
	if pool == nil {
		return nil, fmt.Errorf("critic pool cannot be nil")
	}
	if aggregator == nil {
		return nil, fmt.Errorf("aggregator cannot be nil")
	}
	if fb == nil {
		return nil, fmt.Errorf("fallback engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default().With("component", "decision")
	}
	return &Engine{
		pool:       pool,
		aggregator: aggregator,
		fallback:   fb,
		precedents: precedents,
		emitter:    emitter,
		metrics:    decisionMetrics,
		logger:     logger,
	}, nil
}

// Decide evaluates one request end to end: critic evaluation, aggregation,
// fallback classification, escalation gating, precedent recording, and audit
// emission. It always returns a decision; pipeline-internal failures divert
// to the fallback path instead of propagating.
func (e *Engine) Decide(ctx context.Context, req *Request) (*Decision, error) {
	if req == nil || req.InputText == "" {
		return nil, fmt.Errorf("request input text is required")
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	start := time.Now()
	input := &critics.Input{
		RequestID: req.RequestID,
		Text:      req.InputText,
		Context:   req.Context,
	}

	reports := e.pool.Evaluate(ctx, input)
	fctx := &fallback.Context{TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded)}

	decision := e.finalize(req, reports, fctx)
	decision.Duration = time.Since(start)

	e.record(ctx, req, decision)
	e.emit(req, decision)
	e.observe(decision)

	e.logger.Info("decision finalized",
		"request_id", req.RequestID,
		"verdict", decision.Verdict,
		"confidence", decision.Confidence,
		"escalated", decision.Escalated,
		"fallback", decision.Fallback != nil,
		"duration", decision.Duration,
	)
	return decision, nil
}

// finalize runs aggregation and the fallback gate over the report batch.
func (e *Engine) finalize(req *Request, reports []*verdict.EvaluatorReport, fctx *fallback.Context) *Decision {
	decision := &Decision{
		RequestID: req.RequestID,
		Reports:   reports,
	}

	agg, err := e.aggregator.Aggregate(reports)
	if err != nil {
		// Aggregation refusing the batch is itself a failure mode; let
		// the fallback engine decide.
		e.logger.Warn("aggregation failed", "request_id", req.RequestID, "error", err)
		agg = nil
	}
	decision.Aggregation = agg

	if ok, trigger, reason := e.fallback.ShouldFallback(reports, agg, fctx); ok {
		e.logger.Warn("fallback triggered",
			"request_id", req.RequestID, "trigger", trigger, "reason", reason)
		fb := e.fallback.ApplyFallback(reports, trigger, fctx)
		decision.Fallback = fb
		decision.Verdict = fb.FallbackVerdict
		decision.Confidence = fb.Confidence
		decision.Reason = fb.Reason
		decision.Escalated = fb.FallbackVerdict == verdict.VerdictEscalate ||
			fb.Metadata["requires_human_review"] == "true"
		return decision
	}

	if agg == nil {
		// Aggregation failed and no trigger fired; treat the batch as a
		// wholesale failure rather than guessing.
		fb := e.fallback.ApplyFallback(reports, fallback.TriggerAllCriticsFailed, fctx)
		decision.Fallback = fb
		decision.Verdict = fb.FallbackVerdict
		decision.Confidence = fb.Confidence
		decision.Reason = fb.Reason
		decision.Escalated = fb.FallbackVerdict == verdict.VerdictEscalate
		return decision
	}

	decision.Verdict = agg.OverallVerdict
	decision.Confidence = agg.AvgConfidence
	decision.Reason = agg.Reason

	// A contested aggregation is not trusted as-is; hand it to a human.
	if agg.Contested && agg.OverallVerdict != verdict.VerdictBlock {
		decision.Verdict = verdict.VerdictEscalate
		decision.Escalated = true
		decision.Reason = fmt.Sprintf("contested aggregation (ambiguity %.2f): %s", agg.Ambiguity, agg.Reason)
	}
	if agg.OverallVerdict == verdict.VerdictEscalate {
		decision.Escalated = true
	}

	return decision
}

// record stores the decision as a precedent. Escalated decisions carry no
// settled judgment and are not recorded.
func (e *Engine) record(ctx context.Context, req *Request, decision *Decision) {
	if e.precedents == nil || decision.Escalated {
		return
	}

	outputs := make([]precedent.CriticOutput, 0, len(decision.Reports))
	for _, r := range decision.Reports {
		outputs = append(outputs, precedent.CriticOutput{
			CriticName:    r.CriticName,
			Verdict:       r.Verdict,
			Confidence:    r.Confidence,
			Justification: r.Justification,
		})
	}

	id, err := e.precedents.Record(ctx, &storage.StoreRequest{
		RequestID:     req.RequestID,
		InputText:     req.InputText,
		Context:       req.Context,
		Verdict:       decision.Verdict,
		Confidence:    decision.Confidence,
		CriticOutputs: outputs,
	})
	if err != nil {
		e.logger.Error("precedent recording failed",
			"request_id", req.RequestID, "error", err)
		return
	}
	decision.PrecedentID = id
}

// emit queues the decision for the audit trail.
func (e *Engine) emit(req *Request, decision *Decision) {
	if e.emitter == nil {
		return
	}

	record := &audit.DecisionRecord{
		RequestID:  req.RequestID,
		Timestamp:  time.Now().UTC(),
		Input:      req.InputText,
		Verdict:    decision.Verdict,
		Confidence: decision.Confidence,
		Evidence:   decision.Reports,
	}
	if decision.Fallback != nil {
		record.FallbackTrigger = string(decision.Fallback.Trigger)
	}
	e.emitter.Emit(record)
}

// observe updates decision metrics.
func (e *Engine) observe(decision *Decision) {
	if e.metrics == nil {
		return
	}

	path := "aggregation"
	ambiguity := 0.0
	if decision.Aggregation != nil {
		ambiguity = decision.Aggregation.Ambiguity
	}
	if decision.Fallback != nil {
		path = "fallback"
		e.metrics.RecordFallback(string(decision.Fallback.Trigger), string(decision.Fallback.Strategy))
	}
	e.metrics.RecordDecision(string(decision.Verdict), path, decision.Duration, ambiguity)

	for _, r := range decision.Reports {
		if r.Verdict.IsError() {
			e.metrics.RecordCriticError(r.CriticName)
		}
	}
}
