package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/should-i-shovel/internal/verdict"
)

// Coordinates identifies the point a forecast is requested for.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns a canonical string key for indexing this location in stores.
// Coordinates are rounded to two decimals (about 1 km) so nearby map clicks
// share reports.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.2f:%.2f", round2(c.Latitude), round2(c.Longitude))
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		// Avoid distinct keys for -0.00 and 0.00.
		return 0
	}
	return r
}

// Timestamp is a forecast hour. It accepts RFC3339 as well as the naive
// "2006-01-02T15:04:05" and "2006-01-02 15:04:05" forms, read as UTC.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = ts.UTC()
		return nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time = ts.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid forecast timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339))
}

// ForecastData holds the hourly series for one location. Index i of every
// series refers to forecast hour i.
type ForecastData struct {
	ForecastTimestamp  []Timestamp `json:"forecast_timestamp"`
	ShovelTime         []bool      `json:"shovel_time"`
	EstimatedSnowDepth []float64   `json:"estimated_snow_depth"` // cumulative, mm
	Temperature        []float64   `json:"temperature,omitempty"` // °C
	Snowfall           []float64   `json:"snowfall,omitempty"`    // mm per hour
}

// Forecast is the payload served by the forecast API: {"data": {...}}.
type Forecast struct {
	Data ForecastData `json:"data"`
}

// Hours returns the length of the shovel-time series.
func (f Forecast) Hours() int {
	return len(f.Data.ShovelTime)
}

// Validate checks the series the verdict depends on.
func (f Forecast) Validate() error {
	if err := verdict.Validate(f.Data.ShovelTime, f.Data.EstimatedSnowDepth); err != nil {
		return err
	}
	if n := len(f.Data.ForecastTimestamp); n != 0 && n != f.Hours() {
		return verdict.NewInvalidInputError("forecast_timestamp has %d entries, want %d", n, f.Hours())
	}
	return nil
}

// Verdict runs the verdict engine over the forecast.
func (f Forecast) Verdict() (verdict.Verdict, error) {
	return verdict.Compute(f.Data.ShovelTime, f.Data.EstimatedSnowDepth)
}

// Report is a computed verdict for a location, together with the forecast it
// was derived from.
type Report struct {
	ID          uuid.UUID       `json:"id"`
	Location    Coordinates     `json:"location"`
	GeneratedAt time.Time       `json:"generated_at"` // always UTC
	Verdict     verdict.Verdict `json:"verdict"`
	Message     string          `json:"message"`
	Providers   []string        `json:"providers,omitempty"`
	Data        ForecastData    `json:"data"`
}
