package metrics

import "sync/atomic"

// CacheMetric counts hits and misses of one cache.
type CacheMetric struct {
	name   string
	hits   atomic.Int64
	misses atomic.Int64
}

func newCacheMetric(name string) *CacheMetric {
	return &CacheMetric{name: name}
}

// Hit records a cache hit.
func (c *CacheMetric) Hit() {
	if Enabled() {
		c.hits.Add(1)
	}
}

// Miss records a cache miss.
func (c *CacheMetric) Miss() {
	if Enabled() {
		c.misses.Add(1)
	}
}

// Record counts a lookup as a hit or miss.
func (c *CacheMetric) Record(hit bool) {
	if hit {
		c.Hit()
		return
	}
	c.Miss()
}

// Reset clears the counters.
func (c *CacheMetric) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns a snapshot of the counters.
func (c *CacheMetric) Stats() CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return CacheStats{Name: c.name, Hits: hits, Misses: misses, HitRatio: ratio}
}

// CacheStats holds a snapshot of cache counters.
type CacheStats struct {
	Name     string  `json:"name"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// ChildrenCache counts children cache lookups in the tree builder.
var ChildrenCache = newCacheMetric("children_cache")

// AllCacheMetrics returns all registered cache metrics.
func AllCacheMetrics() []*CacheMetric {
	return []*CacheMetric{ChildrenCache}
}

// AllCacheStats returns stats for the caches that saw any lookups.
func AllCacheStats() []CacheStats {
	var out []CacheStats
	for _, c := range AllCacheMetrics() {
		s := c.Stats()
		if s.Hits+s.Misses > 0 {
			out = append(out, s)
		}
	}
	return out
}
