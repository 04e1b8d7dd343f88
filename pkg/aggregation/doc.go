// Package aggregation combines the reports of independent critics into a
// single authoritative decision.
//
// Aggregation is a pure, synchronous computation over an already-collected
// batch of reports. It holds no external resources and performs no I/O; the
// only side effect is recording the applied weight back onto each input
// report for audit trails.
//
// # Weighting
//
// Each report's effective weight is
//
//	weight × priority multiplier × moral-mode multiplier
//
// where the priority multiplier is a large constant for reports tagged
// "override" (forcing that verdict to win outright) and the moral-mode
// multiplier boosts critic categories favored by the configured moral mode.
//
// # Safety override
//
// If the weighted BLOCK score reaches the configured block threshold the
// overall verdict is BLOCK regardless of the other buckets.
package aggregation
