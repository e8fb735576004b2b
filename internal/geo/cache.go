package geo

import (
	"context"
	"net/netip"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/lumen-analytics/backend/internal/metrics"
)

// Cached memoizes a Locator's answers, including misses. Errors are not cached.
type Cached struct {
	next  Locator
	cache *lru.LRU[netip.Addr, string]
}

// NewCached wraps next with an LRU of size entries that expire after ttl.
func NewCached(next Locator, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 10000
	}
	return &Cached{next: next, cache: lru.NewLRU[netip.Addr, string](size, nil, ttl)}
}

func (c *Cached) Name() string { return c.next.Name() }

func (c *Cached) Country(ctx context.Context, addr netip.Addr) (string, error) {
	if code, ok := c.cache.Get(addr); ok {
		metrics.GeoLookups.WithLabelValues(c.next.Name(), "cached").Inc()
		return code, nil
	}
	code, err := c.next.Country(ctx, addr)
	if err != nil {
		return "", err
	}
	c.cache.Add(addr, code)
	return code, nil
}
