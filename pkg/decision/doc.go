// Package decision wires critics, aggregation, fallback, precedent memory,
// and audit emission into the end-to-end decision pipeline.
//
// The Engine runs the normal path (evaluate, aggregate) and diverts to the
// fallback path when failure triggers fire. Contested aggregations escalate
// to a human decision. Finalized non-escalated decisions are recorded as
// precedents and, when an embedding provider is configured, become
// retrievable through semantic search.
package decision
