package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/should-i-shovel/internal/forecast"
	"github.com/i474232898/should-i-shovel/internal/observability"
	"github.com/i474232898/should-i-shovel/internal/store"
	"github.com/i474232898/should-i-shovel/internal/verdict"
)

type fakeProvider struct {
	forecast forecast.Forecast
	err      error
}

func (p fakeProvider) Name() string { return "fake" }

func (p fakeProvider) FetchForecast(_ context.Context, _ forecast.Coordinates, _ int) (forecast.Forecast, error) {
	return p.forecast, p.err
}

type fakeGeocoder struct {
	coords forecast.Coordinates
	err    error
}

func (g fakeGeocoder) Geocode(_ context.Context, _ string) (forecast.Coordinates, error) {
	return g.coords, g.err
}

func snowyForecast() forecast.Forecast {
	shovel := make([]bool, 24)
	depth := make([]float64, 24)
	for i := range shovel {
		shovel[i] = true
		depth[i] = float64(i + 1)
	}
	return forecast.Forecast{Data: forecast.ForecastData{ShovelTime: shovel, EstimatedSnowDepth: depth}}
}

func newTestApp(t *testing.T, p forecast.Provider, opts ...forecast.Option) (*fiber.App, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC))
	opts = append([]forecast.Option{
		forecast.WithClock(clock),
		forecast.WithMetrics(observability.NewMetricsForTesting()),
	}, opts...)

	svc := forecast.NewService(store.NewMemoryStoreWithClock(10, 24*time.Hour, clock), []forecast.Provider{p}, opts...)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, svc)
	return app, clock
}

func doGet(t *testing.T, app *fiber.App, target string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestForecastCoordinates(t *testing.T) {
	app, _ := newTestApp(t, fakeProvider{forecast: snowyForecast()})

	status, body := doGet(t, app, "/forecast/coordinates?latitude=49.89&longitude=-97.13")
	require.Equal(t, http.StatusOK, status)

	var report forecast.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, verdict.Likely, report.Verdict)
	assert.Equal(t, verdict.Likely.Message(), report.Message)
	assert.Len(t, report.Data.ShovelTime, 24)
	assert.InDelta(t, 49.89, report.Location.Latitude, 1e-9)
}

func TestForecastAlias(t *testing.T) {
	app, _ := newTestApp(t, fakeProvider{forecast: snowyForecast()})

	status, _ := doGet(t, app, "/forecast/?latitude=49.89&longitude=-97.13")
	assert.Equal(t, http.StatusOK, status)
}

func TestForecastCoordinatesValidation(t *testing.T) {
	app, _ := newTestApp(t, fakeProvider{forecast: snowyForecast()})

	tests := []struct {
		name   string
		target string
	}{
		{"missing latitude", "/forecast/coordinates?longitude=-97.13"},
		{"missing longitude", "/forecast/coordinates?latitude=49.89"},
		{"latitude out of range", "/forecast/coordinates?latitude=91&longitude=-97.13"},
		{"longitude not a number", "/forecast/coordinates?latitude=49.89&longitude=west"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doGet(t, app, tt.target)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, string(body), `"error":true`)
		})
	}
}

func TestForecastMalformedUpstreamIsNotFound(t *testing.T) {
	bad := forecast.Forecast{Data: forecast.ForecastData{
		ShovelTime:         []bool{true, false, true},
		EstimatedSnowDepth: []float64{1, 2, 3},
	}}
	app, _ := newTestApp(t, fakeProvider{forecast: bad})

	status, body := doGet(t, app, "/forecast/coordinates?latitude=49.89&longitude=-97.13")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "no forecast data available")
}

func TestForecastUpstreamDown(t *testing.T) {
	app, _ := newTestApp(t, fakeProvider{err: assert.AnError})

	status, _ := doGet(t, app, "/forecast/coordinates?latitude=49.89&longitude=-97.13")
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestVerdictEndpoint(t *testing.T) {
	app, _ := newTestApp(t, fakeProvider{forecast: snowyForecast()})

	status, body := doGet(t, app, "/api/v1/verdict?latitude=49.89&longitude=-97.13")
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Verdict verdict.Verdict `json:"verdict"`
		Message string          `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, verdict.Likely, resp.Verdict)
	assert.Equal(t, verdict.Likely.Message(), resp.Message)
}

func TestAddress(t *testing.T) {
	geo := fakeGeocoder{coords: forecast.Coordinates{Latitude: 49.8951, Longitude: -97.1384}}
	app, _ := newTestApp(t, fakeProvider{forecast: snowyForecast()}, forecast.WithGeocoder(geo))

	status, body := doGet(t, app, "/address/?address=Winnipeg%2C%20MB")
	require.Equal(t, http.StatusOK, status)

	var coords []float64
	require.NoError(t, json.Unmarshal(body, &coords))
	assert.Equal(t, []float64{49.8951, -97.1384}, coords)
}

func TestAddressNotFound(t *testing.T) {
	geo := fakeGeocoder{err: forecast.ErrAddressNotFound}
	app, _ := newTestApp(t, fakeProvider{forecast: snowyForecast()}, forecast.WithGeocoder(geo))

	status, body := doGet(t, app, "/address/?address=nowhere")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[null, null]`, string(body))

	status, _ = doGet(t, app, "/address/")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestVerdictHistory(t *testing.T) {
	app, clock := newTestApp(t, fakeProvider{forecast: snowyForecast()})

	start := clock.Now()
	status, _ := doGet(t, app, "/api/v1/verdict?latitude=49.89&longitude=-97.13")
	require.Equal(t, http.StatusOK, status)

	// Past the freshness window so the second call generates a new report.
	clock.Advance(time.Hour)
	status, _ = doGet(t, app, "/api/v1/verdict?latitude=49.89&longitude=-97.13")
	require.Equal(t, http.StatusOK, status)

	from := start.Add(-time.Minute).Format(time.RFC3339)
	to := clock.Now().Unix()
	status, body := doGet(t, app, "/api/v1/verdict/history?latitude=49.89&longitude=-97.13&from="+from+"&to="+strconv.FormatInt(to, 10))
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Reports []forecast.Report `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Reports, 2)
	assert.True(t, resp.Reports[0].GeneratedAt.Before(resp.Reports[1].GeneratedAt))
}

func TestVerdictHistoryValidation(t *testing.T) {
	app, _ := newTestApp(t, fakeProvider{forecast: snowyForecast()})

	// Missing range.
	status, _ := doGet(t, app, "/api/v1/verdict/history?latitude=49.89&longitude=-97.13")
	assert.Equal(t, http.StatusBadRequest, status)

	// to before from.
	status, _ = doGet(t, app, "/api/v1/verdict/history?latitude=49.89&longitude=-97.13&from=1700000000&to=1600000000")
	assert.Equal(t, http.StatusBadRequest, status)

	// Nothing stored yet.
	status, _ = doGet(t, app, "/api/v1/verdict/history?latitude=49.89&longitude=-97.13&from=1600000000&to=1700000000")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestParseTime(t *testing.T) {
	ts, err := parseTime("2024-02-01T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC), ts)

	ts, err = parseTime("1706788800")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 1, 12, 0, 0, 0, time.UTC), ts)

	_, err = parseTime("yesterday")
	assert.Error(t, err)
}
