package geo

import "sync/atomic"

// Stats counts cache and provider behaviour for observability. The counters
// are not part of the resolve contract; they feed the stats endpoint.
type Stats struct {
	CacheHits      atomic.Int64
	CacheMisses    atomic.Int64
	ProviderCalls  atomic.Int64
	ProviderErrors atomic.Int64
}

// Snapshot returns the current counter values for serialization.
func (s *Stats) Snapshot() map[string]int64 {
	if s == nil {
		return nil
	}
	return map[string]int64{
		"cache_hits":      s.CacheHits.Load(),
		"cache_misses":    s.CacheMisses.Load(),
		"provider_calls":  s.ProviderCalls.Load(),
		"provider_errors": s.ProviderErrors.Load(),
	}
}
