// Package storage persists precedent records.
//
// Two backends implement the Storage interface: a SQLite backend for
// production use and an in-memory backend for tests. The SQLite backend
// supports both the cgo driver (mattn/go-sqlite3, driver name "sqlite3") and
// the pure-Go driver (modernc.org/sqlite, driver name "sqlite"), selected by
// configuration.
//
// # Deduplication
//
// Store computes the canonical hash of (input text, context) and runs the
// check-then-insert inside a single transaction, so concurrent identical
// requests resolve to one stored row. A second Store of the same input
// returns the existing id.
//
// # Schema
//
// Four tables: precedents (dedup-unique on content hash), critic_outputs
// (per-precedent evaluator reports), embeddings (opaque serialized vector
// plus model name), and precedent_refs (weighted precedent-to-precedent
// similarity edges).
package storage
