// Package critics runs the independent evaluators that judge each request.
//
// Critics implement a fixed interface and are registered explicitly at
// startup from static configuration; there is no reflective plugin loading.
// The Pool fans a request out across a bounded set of workers with a
// per-critic deadline: a critic that errs, panics, or times out contributes
// an ERROR report rather than aborting the batch.
//
// ResultCache memoizes critic calls keyed by critic name, canonical input
// hash, and config version, with TTL expiry and LRU eviction. The Watcher
// hot-reloads critic weights and criticality from the config file.
package critics
