// Package metrics exposes Prometheus instrumentation for the decision
// engine: aggregation outcomes and latency, fallback triggers, precedent
// store activity (including dedup hits), and precedent search latency.
//
// All collectors register against an injected registry; there is no
// package-level default registration.
package metrics
