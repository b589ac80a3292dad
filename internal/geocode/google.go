// Package geocode resolves addresses to coordinates.
package geocode

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/should-i-shovel/internal/common"
	"github.com/i474232898/should-i-shovel/internal/forecast"
)

// The geocoder library keeps its key in a package variable.
var apiKeyOnce sync.Once

// GoogleGeocoder implements forecast.Geocoder with the Google Geocoding API.
type GoogleGeocoder struct {
	lookup func(geocoder.Address) (geocoder.Location, error)
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	apiKeyOnce.Do(func() { geocoder.ApiKey = apiKey })
	return &GoogleGeocoder{lookup: geocoder.Geocoding}
}

// Geocode sends the whole address as the street component; Google parses
// free-form input.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (forecast.Coordinates, error) {
	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := g.lookup(geocoder.Address{Street: address})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return forecast.Coordinates{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			if common.HasAny(r.err.Error(), "zero_results", "no results") {
				return forecast.Coordinates{}, forecast.ErrAddressNotFound
			}
			return forecast.Coordinates{}, fmt.Errorf("google geocode: %w", r.err)
		}
		if r.loc.Latitude == 0 && r.loc.Longitude == 0 {
			return forecast.Coordinates{}, forecast.ErrAddressNotFound
		}
		return forecast.Coordinates{Latitude: r.loc.Latitude, Longitude: r.loc.Longitude}, nil
	}
}
