// Package embedding provides text embedding providers for semantic precedent
// retrieval.
//
// The Provider interface is optional infrastructure: when no provider is
// configured, semantic search is disabled but exact-match retrieval keeps
// working. The OpenAI provider caches results in an LRU keyed by input text
// and retries transient API failures with exponential backoff.
package embedding
