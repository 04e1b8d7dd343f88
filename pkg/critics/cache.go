package critics

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"mercator-hq/minos/pkg/precedent"
	"mercator-hq/minos/pkg/verdict"
)

// CacheConfig contains configuration for the critic result cache.
type CacheConfig struct {
	// Size is the maximum number of cached results (LRU eviction).
	// Default: 4096
	Size int `yaml:"size"`

	// TTL is the entry lifetime.
	// Default: 5 minutes
	TTL time.Duration `yaml:"ttl"`
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Size: 4096,
		TTL:  5 * time.Minute,
	}
}

// ResultCache memoizes critic evaluations. Entries are keyed by critic name,
// canonical input hash, and config version, expire after the TTL, and evict
// least-recently-used when full. Safe for concurrent use from multiple
// in-flight requests.
type ResultCache struct {
	lru *expirable.LRU[string, *verdict.EvaluatorReport]
}

// NewResultCache creates a result cache.
func NewResultCache(config *CacheConfig) *ResultCache {
	if config == nil {
		config = DefaultCacheConfig()
	}
	if config.Size <= 0 {
		config.Size = 4096
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, *verdict.EvaluatorReport](config.Size, nil, config.TTL),
	}
}

// Get returns a copy of the cached report for (critic, input, version).
func (c *ResultCache) Get(criticName string, input *Input, configVersion string) (*verdict.EvaluatorReport, bool) {
	report, ok := c.lru.Get(cacheKey(criticName, input, configVersion))
	if !ok {
		return nil, false
	}
	cp := *report
	return &cp, true
}

// Put stores a copy of the report, insulating the cache from later weight
// annotations on the returned instance.
func (c *ResultCache) Put(criticName string, input *Input, configVersion string, report *verdict.EvaluatorReport) {
	cp := *report
	c.lru.Add(cacheKey(criticName, input, configVersion), &cp)
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Purge drops all entries.
func (c *ResultCache) Purge() {
	c.lru.Purge()
}

func cacheKey(criticName string, input *Input, configVersion string) string {
	return criticName + "\x1f" + precedent.CanonicalHash(input.Text, input.Context) + "\x1f" + configVersion
}
