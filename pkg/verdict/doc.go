// Package verdict defines the core vocabulary of the decision engine: the
// Verdict enum and the EvaluatorReport produced by each critic for a request.
//
// Reports are validated at construction time. Downstream components
// (aggregation, fallback, precedent storage) can therefore assume that any
// EvaluatorReport they receive carries a known verdict and a confidence in
// [0, 1].
package verdict
