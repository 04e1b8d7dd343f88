// Package index provides pluggable nearest-neighbor search over precedent
// embeddings.
//
// Two implementations exist: BruteForceIndex, an exact cosine scan over all
// stored vectors, and ChromemIndex, backed by the chromem-go embedded vector
// database. The implementation is selected at construction time via
// configuration; there is no runtime fallback between them.
package index
