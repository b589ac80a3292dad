package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/should-i-shovel/internal/verdict"
)

func TestOpenMeteoProvider_FetchForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "snowfall,temperature_2m", q.Get("hourly"))
		assert.Equal(t, "48", q.Get("forecast_hours"))

		times := make([]string, 48)
		snowfall := make([]float64, 48)
		temps := make([]float64, 48)
		base := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
		for i := range times {
			times[i] = base.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04")
			temps[i] = -8
		}
		// 1.5 cm over three evening hours on day two.
		snowfall[30], snowfall[31], snowfall[32] = 0.5, 0.5, 0.5

		var resp struct {
			Hourly map[string]any `json:"hourly"`
		}
		resp.Hourly = map[string]any{"time": times, "snowfall": snowfall, "temperature_2m": temps}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(&http.Client{Timeout: 5 * time.Second}, DefaultDerive)
	p.baseURL = srv.URL
	p.transport.backoff = fastBackoff

	f, err := p.FetchForecast(context.Background(), winnipeg, 48)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	assert.Equal(t, 48, f.Hours())
	assert.InDelta(t, 15.0, f.Data.EstimatedSnowDepth[47], 1e-9)
	assert.Equal(t, time.Date(2024, time.January, 11, 6, 0, 0, 0, time.UTC), f.Data.ForecastTimestamp[30].Time)
	assert.False(t, f.Data.ShovelTime[30])
	assert.True(t, f.Data.ShovelTime[31])
	assert.Equal(t, -8.0, f.Data.Temperature[0])

	v, err := f.Verdict()
	require.NoError(t, err)
	assert.Equal(t, verdict.MaybeTomorrow, v)
}

func TestOpenMeteoProvider_BadTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"hourly": {"time": ["yesterday"], "snowfall": [0]}}`)
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(&http.Client{Timeout: 5 * time.Second}, DefaultDerive)
	p.baseURL = srv.URL
	p.transport.backoff = fastBackoff

	_, err := p.FetchForecast(context.Background(), winnipeg, 48)
	assert.Error(t, err)
}
