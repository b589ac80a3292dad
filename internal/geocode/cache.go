package geocode

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/i474232898/should-i-shovel/internal/forecast"
	"github.com/i474232898/should-i-shovel/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   forecast.Geocoder
	metrics *observability.Metrics
	cache   *lru.Cache[string, forecast.Coordinates]
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner forecast.Geocoder, maxEntries int, metrics *observability.Metrics) (*CachedGeocoder, error) {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	cache, err := lru.New[string, forecast.Coordinates](maxEntries)
	if err != nil {
		return nil, err
	}
	return &CachedGeocoder{
		inner:   inner,
		metrics: metrics,
		cache:   cache,
	}, nil
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (forecast.Coordinates, error) {
	key := cacheKey(address)

	if coords, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return coords, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	coords, err := c.inner.Geocode(ctx, address)
	if err != nil {
		// Not-found answers are not cached so they can be retried.
		return coords, err
	}
	c.cache.Add(key, coords)
	return coords, nil
}

// cacheKey lowercases the address and collapses whitespace. The result never
// shares memory with address, which may live in a reused request buffer.
func cacheKey(address string) string {
	return strings.Clone(strings.ToLower(strings.Join(strings.Fields(address), " ")))
}
