package verdict

import (
	"fmt"
	"strings"
)

// Verdict represents the judgment a critic renders on a request.
type Verdict string

const (
	// VerdictAllow permits the request.
	VerdictAllow Verdict = "ALLOW"

	// VerdictBlock denies the request. "DENY" is accepted as an input alias
	// and normalized to VerdictBlock.
	VerdictBlock Verdict = "BLOCK"

	// VerdictReview defers the request for closer inspection.
	VerdictReview Verdict = "REVIEW"

	// VerdictEscalate requires a human decision.
	VerdictEscalate Verdict = "ESCALATE"

	// VerdictError indicates the critic failed to produce a judgment.
	VerdictError Verdict = "ERROR"
)

// ParseVerdict normalizes a verdict string. It is case-insensitive and maps
// the DENY alias onto VerdictBlock.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ALLOW":
		return VerdictAllow, nil
	case "BLOCK", "DENY":
		return VerdictBlock, nil
	case "REVIEW":
		return VerdictReview, nil
	case "ESCALATE":
		return VerdictEscalate, nil
	case "ERROR":
		return VerdictError, nil
	default:
		return "", &ValidationError{Field: "verdict", Message: fmt.Sprintf("unknown verdict %q", s)}
	}
}

// Valid reports whether v is a member of the verdict enum.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictAllow, VerdictBlock, VerdictReview, VerdictEscalate, VerdictError:
		return true
	}
	return false
}

// IsError reports whether the verdict represents a critic failure rather
// than a judgment.
func (v Verdict) IsError() bool {
	return v == VerdictError
}

// Restrictiveness orders verdicts from most permissive to most restrictive.
// Used by the conservative fallback strategy to pick the safest surviving
// verdict.
func (v Verdict) Restrictiveness() int {
	switch v {
	case VerdictAllow:
		return 0
	case VerdictReview:
		return 1
	case VerdictEscalate:
		return 2
	case VerdictBlock:
		return 3
	default:
		return -1
	}
}

// PriorityOverride is the priority tag that forces a report's verdict to win
// aggregation outright.
const PriorityOverride = "override"

// EvaluatorReport is the immutable output of a single critic for a single
// request. The aggregator owns the batch for the duration of one call; the
// only mutation it performs is recording AppliedWeight for auditability.
type EvaluatorReport struct {
	// CriticName identifies the critic that produced this report.
	CriticName string `json:"critic_name" yaml:"critic_name"`

	// Verdict is the critic's judgment.
	Verdict Verdict `json:"verdict" yaml:"verdict"`

	// Confidence is the critic's confidence in its verdict, in [0, 1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Justification is the critic's human-readable reasoning.
	Justification string `json:"justification,omitempty" yaml:"justification,omitempty"`

	// Weight is the base aggregation weight (>= 0). Zero-valued reports
	// constructed via NewReport default to 1.0.
	Weight float64 `json:"weight" yaml:"weight"`

	// Priority is an optional tag. PriorityOverride forces this report's
	// verdict to win aggregation.
	Priority string `json:"priority,omitempty" yaml:"priority,omitempty"`

	// Category classifies the critic (e.g. "rights", "outcome", "safety").
	// Moral-mode weighting keys off this field.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// AppliedWeight is the effective weight the aggregator used for this
	// report, recorded after aggregation for audit trails.
	AppliedWeight float64 `json:"applied_weight,omitempty" yaml:"applied_weight,omitempty"`

	// Metadata carries critic-specific detail.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewReport constructs a validated EvaluatorReport with the default weight.
func NewReport(criticName string, v Verdict, confidence float64, justification string) (*EvaluatorReport, error) {
	r := &EvaluatorReport{
		CriticName:    criticName,
		Verdict:       v,
		Confidence:    confidence,
		Justification: justification,
		Weight:        1.0,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// ErrorReport constructs the ERROR report recorded when a critic fails or
// times out. The failure reason is preserved as the justification.
func ErrorReport(criticName string, cause error) *EvaluatorReport {
	justification := "critic failed"
	if cause != nil {
		justification = cause.Error()
	}
	return &EvaluatorReport{
		CriticName:    criticName,
		Verdict:       VerdictError,
		Confidence:    0,
		Justification: justification,
		Weight:        1.0,
	}
}

// Validate checks the report invariants: known verdict, confidence in [0, 1],
// non-negative weight, and a non-empty critic name.
func (r *EvaluatorReport) Validate() error {
	if r.CriticName == "" {
		return &ValidationError{Field: "critic_name", Message: "critic name is required"}
	}
	if !r.Verdict.Valid() {
		return &ValidationError{Field: "verdict", Message: fmt.Sprintf("unknown verdict %q", r.Verdict)}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return &ValidationError{Field: "confidence", Message: fmt.Sprintf("confidence %v outside [0, 1]", r.Confidence)}
	}
	if r.Weight < 0 {
		return &ValidationError{Field: "weight", Message: fmt.Sprintf("weight %v is negative", r.Weight)}
	}
	return nil
}
