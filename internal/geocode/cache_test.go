package geocode

import (
	"context"
	"testing"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/should-i-shovel/internal/forecast"
	"github.com/i474232898/should-i-shovel/internal/observability"
)

type countingGeocoder struct {
	calls  map[string]int
	coords forecast.Coordinates
	err    error
}

func newCountingGeocoder(coords forecast.Coordinates, err error) *countingGeocoder {
	return &countingGeocoder{calls: make(map[string]int), coords: coords, err: err}
}

func (g *countingGeocoder) Geocode(_ context.Context, address string) (forecast.Coordinates, error) {
	g.calls[address]++
	return g.coords, g.err
}

var winnipeg = forecast.Coordinates{Latitude: 49.8951, Longitude: -97.1384}

func TestCachedGeocoder_Hit(t *testing.T) {
	inner := newCountingGeocoder(winnipeg, nil)
	m := observability.NewMetricsForTesting()
	cached, err := NewCachedGeocoder(inner, 10, m)
	require.NoError(t, err)

	first, err := cached.Geocode(context.Background(), "Winnipeg, MB")
	require.NoError(t, err)
	second, err := cached.Geocode(context.Background(), "  winnipeg,   mb ")
	require.NoError(t, err)

	assert.Equal(t, winnipeg, first)
	assert.Equal(t, winnipeg, second)
	assert.Equal(t, 1, inner.calls["Winnipeg, MB"], "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("miss")))
}

func TestCachedGeocoder_NotFoundIsNotCached(t *testing.T) {
	inner := newCountingGeocoder(forecast.Coordinates{}, forecast.ErrAddressNotFound)
	cached, err := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = cached.Geocode(context.Background(), "nowhere")
		assert.ErrorIs(t, err, forecast.ErrAddressNotFound)
	}
	assert.Equal(t, 2, inner.calls["nowhere"])
}

func TestCachedGeocoder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := newCountingGeocoder(winnipeg, nil)
	cached, err := NewCachedGeocoder(inner, 2, observability.NewMetricsForTesting())
	require.NoError(t, err)
	ctx := context.Background()

	for _, addr := range []string{"a", "b", "a", "c", "a", "b"} {
		_, err = cached.Geocode(ctx, addr)
		require.NoError(t, err)
	}

	// "b" was evicted when "c" arrived; "a" stayed hot.
	assert.Equal(t, 1, inner.calls["a"])
	assert.Equal(t, 2, inner.calls["b"])
	assert.Equal(t, 1, inner.calls["c"])
}

func TestCacheKey_DoesNotAliasInput(t *testing.T) {
	buf := []byte("winnipeg")
	address := string(buf)

	key := cacheKey(address)
	assert.Equal(t, "winnipeg", key)
	assert.NotSame(t, unsafe.StringData(address), unsafe.StringData(key))
}

func TestCachedGeocoder_ZeroSizeStillCaches(t *testing.T) {
	inner := newCountingGeocoder(winnipeg, nil)
	cached, err := NewCachedGeocoder(inner, 0, observability.NewMetricsForTesting())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = cached.Geocode(context.Background(), "winnipeg")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.calls["winnipeg"])
}
