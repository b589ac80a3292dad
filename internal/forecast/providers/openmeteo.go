package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/should-i-shovel/internal/forecast"
)

// DeriveConfig controls how shovel time is derived from raw snowfall for
// providers that do not forecast it directly.
type DeriveConfig struct {
	ThresholdMM float64
	WindowHours int
}

// DefaultDerive matches the forecast package defaults.
var DefaultDerive = DeriveConfig{
	ThresholdMM: forecast.DefaultShovelThresholdMM,
	WindowHours: forecast.DefaultShovelWindowHours,
}

const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoProvider implements forecast.Provider for Open-Meteo. It needs no API key.
type OpenMeteoProvider struct {
	name      string
	baseURL   string
	derive    DeriveConfig
	transport *transport
}

func NewOpenMeteoProvider(client *http.Client, derive DeriveConfig) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:      "openmeteo",
		baseURL:   "https://api.open-meteo.com/v1/forecast",
		derive:    derive,
		transport: newTransport("openmeteo", client, DefaultBackoff),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, loc forecast.Coordinates, hours int) (forecast.Forecast, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", loc.Latitude))
	values.Set("longitude", fmt.Sprintf("%f", loc.Longitude))
	values.Set("hourly", "snowfall,temperature_2m")
	values.Set("forecast_hours", strconv.Itoa(hours))
	values.Set("timezone", "UTC")

	body, err := p.transport.get(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()))
	if err != nil {
		return forecast.Forecast{}, err
	}

	var payload struct {
		Hourly struct {
			Time        []string  `json:"time"`
			Snowfall    []float64 `json:"snowfall"` // cm
			Temperature []float64 `json:"temperature_2m"`
		} `json:"hourly"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return forecast.Forecast{}, fmt.Errorf("decode openmeteo response: %w", err)
	}

	n := min(len(payload.Hourly.Time), len(payload.Hourly.Snowfall), hours)
	times := make([]forecast.Timestamp, n)
	snowfall := make([]float64, n)
	for i := 0; i < n; i++ {
		ts, err := time.Parse(openMeteoTimeLayout, payload.Hourly.Time[i])
		if err != nil {
			return forecast.Forecast{}, fmt.Errorf("parse openmeteo time %q: %w", payload.Hourly.Time[i], err)
		}
		times[i] = forecast.Timestamp{Time: ts.UTC()}
		snowfall[i] = payload.Hourly.Snowfall[i] * 10
	}

	var temps []float64
	if len(payload.Hourly.Temperature) >= n {
		temps = payload.Hourly.Temperature[:n]
	}

	return forecast.NewDerivedForecast(times, snowfall, temps, p.derive.ThresholdMM, p.derive.WindowHours), nil
}
