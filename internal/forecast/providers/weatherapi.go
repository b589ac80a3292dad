package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/should-i-shovel/internal/forecast"
)

// WeatherAPIProvider implements forecast.Provider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name      string
	apiKey    string
	baseURL   string
	derive    DeriveConfig
	clock     clockwork.Clock
	transport *transport
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, derive DeriveConfig) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:      "weatherapi",
		apiKey:    apiKey,
		baseURL:   "https://api.weatherapi.com/v1/forecast.json",
		derive:    derive,
		clock:     clockwork.NewRealClock(),
		transport: newTransport("weatherapi", client, DefaultBackoff),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

// FetchForecast requests enough forecast days to cover hours from the current
// hour and flattens the per-day hourly entries.
func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, loc forecast.Coordinates, hours int) (forecast.Forecast, error) {
	if p.apiKey == "" {
		return forecast.Forecast{}, fmt.Errorf("weatherapi api key is not configured")
	}

	// The first day includes hours that already passed.
	days := hours/24 + 2

	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "lat,lon".
	values.Set("q", fmt.Sprintf("%f,%f", loc.Latitude, loc.Longitude))
	values.Set("days", fmt.Sprintf("%d", days))
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	body, err := p.transport.get(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()))
	if err != nil {
		return forecast.Forecast{}, err
	}

	var payload struct {
		Forecast struct {
			ForecastDay []struct {
				Hour []struct {
					TimeEpoch int64   `json:"time_epoch"`
					TempC     float64 `json:"temp_c"`
					SnowCm    float64 `json:"snow_cm"`
				} `json:"hour"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return forecast.Forecast{}, fmt.Errorf("decode weatherapi response: %w", err)
	}

	currentHour := p.clock.Now().UTC().Truncate(time.Hour)

	var (
		times    []forecast.Timestamp
		snowfall []float64
		temps    []float64
	)
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			ts := time.Unix(h.TimeEpoch, 0).UTC()
			if ts.Before(currentHour) || len(times) == hours {
				continue
			}
			times = append(times, forecast.Timestamp{Time: ts})
			snowfall = append(snowfall, h.SnowCm*10)
			temps = append(temps, h.TempC)
		}
	}

	return forecast.NewDerivedForecast(times, snowfall, temps, p.derive.ThresholdMM, p.derive.WindowHours), nil
}
