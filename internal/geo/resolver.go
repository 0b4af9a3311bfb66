package geo

import (
	"context"
	"net"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCacheTTL bounds how long a resolved location is reused before the
// provider is consulted again.
const DefaultCacheTTL = 24 * time.Hour

var loopbackLiterals = map[string]struct{}{
	"127.0.0.1": {},
	"::1":       {},
	"localhost": {},
}

// Resolver maps IPs to locations. Resolve is total: provider failures degrade
// to LocationUnknown instead of surfacing to the request path.
type Resolver struct {
	cache   Cache
	sources []Provider
	ttl     time.Duration
	stats   *Stats
}

// NewResolver builds a resolver that tries sources in order on a cache miss.
// A nil stats object disables counting.
func NewResolver(cache Cache, stats *Stats, ttl time.Duration, sources ...Provider) *Resolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Resolver{
		cache:   cache,
		sources: sources,
		ttl:     ttl,
		stats:   stats,
	}
}

// Resolve returns the location for ip. Loopback and private addresses are
// answered before any cache or source access. A failed lookup returns
// LocationUnknown and leaves the cache untouched, so a transient provider
// outage cannot poison results for the full TTL window.
func (r *Resolver) Resolve(ctx context.Context, ip string) Location {
	if isLoopback(ip) {
		return LocationLocal
	}
	if isPrivate(ip) {
		return LocationPrivate
	}

	if loc, ok := r.cache.Get(ctx, ip); ok {
		r.stats.CacheHits.Add(1)
		return loc
	}
	r.stats.CacheMisses.Add(1)

	for _, source := range r.sources {
		r.stats.ProviderCalls.Add(1)

		loc, err := source.Lookup(ctx, ip)
		if err != nil {
			r.stats.ProviderErrors.Add(1)
			log.Warn("Geolocation lookup failed", "ip", ip, "error", err)
			continue
		}

		r.cache.Set(ctx, ip, loc, r.ttl)
		return loc
	}

	return LocationUnknown
}

func isLoopback(ip string) bool {
	if _, ok := loopbackLiterals[ip]; ok {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}

func isPrivate(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsPrivate()
}
