// Package fallback decides when the normal aggregation result cannot be
// trusted and substitutes a degraded-mode decision.
//
// Trigger detection and strategy application are separate steps: ShouldFallback
// classifies the failure mode (all critics down, a critical critic down, high
// error rate, low confidence, timeout) and ApplyFallback produces the
// substitute decision according to the configured strategy. Strategies are
// independent of triggers.
//
// A fallback result never carries full confidence: any degraded path caps its
// confidence below the best available critic confidence. ApplyFallback never
// fails; malformed or empty input still yields a well-formed result with a
// textual reason so the calling pipeline can always produce a decision.
package fallback
