package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/should-i-shovel/internal/forecast"
)

// ShovelAPIProvider reads forecasts from the shovel forecast API, which serves
// precomputed shovel-time and snow-depth series for any point. It also
// implements forecast.Geocoder through the API's address endpoint.
type ShovelAPIProvider struct {
	name      string
	baseURL   string
	transport *transport
}

func NewShovelAPIProvider(client *http.Client, baseURL string) *ShovelAPIProvider {
	return &ShovelAPIProvider{
		name:      "shovelapi",
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: newTransport("shovelapi", client, DefaultBackoff),
	}
}

func (p *ShovelAPIProvider) Name() string {
	return p.name
}

// FetchForecast requests /forecast/coordinates. The API always returns its
// full window; hours is ignored.
func (p *ShovelAPIProvider) FetchForecast(ctx context.Context, loc forecast.Coordinates, _ int) (forecast.Forecast, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))

	body, err := p.transport.get(ctx, fmt.Sprintf("%s/forecast/coordinates?%s", p.baseURL, values.Encode()))
	if err != nil {
		return forecast.Forecast{}, err
	}
	return forecast.DecodePayload(bytes.NewReader(body))
}

// Geocode resolves an address with /address/, which answers [lat, lng] or
// [null, null] when nothing matched.
func (p *ShovelAPIProvider) Geocode(ctx context.Context, address string) (forecast.Coordinates, error) {
	values := url.Values{}
	values.Set("address", address)

	body, err := p.transport.get(ctx, fmt.Sprintf("%s/address/?%s", p.baseURL, values.Encode()))
	if err != nil {
		return forecast.Coordinates{}, err
	}

	var coords []*float64
	if err := json.Unmarshal(body, &coords); err != nil {
		return forecast.Coordinates{}, fmt.Errorf("decode address response: %w", err)
	}
	if len(coords) < 2 || coords[0] == nil || coords[1] == nil {
		return forecast.Coordinates{}, forecast.ErrAddressNotFound
	}
	return forecast.Coordinates{Latitude: *coords[0], Longitude: *coords[1]}, nil
}
