// Package search retrieves precedents similar to a query case.
//
// HybridSearcher composes two retrieval channels: exact matching on the
// canonical content hash and semantic nearest-neighbor search over
// embeddings. Exact matches always rank first when the exact channel carries
// weight; within each channel, every match after the first is decayed by
// position so top-ranked hits dominate. Identical queries against an
// unchanged store produce identical rankings.
//
// Ranker re-orders retrieved precedents by similarity, recency, or a stable
// weighted hybrid of similarity, recency, and confidence.
package search
