// Package precedent defines the stored-decision record and its error
// taxonomy.
//
// A precedent is an immutable snapshot of a finalized (non-escalated)
// decision: the input that was judged, the verdict, the confidence, and
// optionally an embedding of the input for semantic retrieval. Precedents are
// deduplicated by a canonical SHA-256 hash of the input text and context, so
// identical requests resolve to the same stored record.
//
// Storage backends live in the storage subpackage; similarity search in the
// index and search subpackages; privacy-preserving export in pkg/privacy.
package precedent
