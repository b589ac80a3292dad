package forecast

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/should-i-shovel/internal/verdict"
)

var (
	// ErrNotFound is returned by stores when no report exists for a location.
	ErrNotFound = errors.New("no shovel report for location")

	// ErrNoForecast is returned when no provider produced a forecast.
	ErrNoForecast = errors.New("no forecast data available")

	// ErrAddressNotFound is returned when an address resolves to no coordinates.
	ErrAddressNotFound = errors.New("no coordinates found for address")
)

// IsInvalidInput reports whether err means a forecast payload was malformed.
func IsInvalidInput(err error) bool {
	return errors.Is(err, verdict.ErrInvalidInput)
}

// Provider abstracts a forecast source (the shovel API, Open-Meteo, WeatherAPI).
type Provider interface {
	Name() string
	FetchForecast(ctx context.Context, loc Coordinates, hours int) (Forecast, error)
}

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
}

// Store is the contract the report stores (memory, redis) must satisfy.
type Store interface {
	SaveReport(ctx context.Context, report Report) error
	GetLatest(ctx context.Context, loc Coordinates) (Report, error)
	GetRange(ctx context.Context, loc Coordinates, from, to time.Time) ([]Report, error)
}
