package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/should-i-shovel/internal/forecast"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type AppConfig struct {
	Port      string
	LogLevel  string
	LogFormat string

	// ForecastAPIURL is the base URL of the shovel forecast API.
	ForecastAPIURL   string
	OpenMeteoEnabled bool
	WeatherAPIKey    string

	GoogleGeocoderAPIKey string
	GeocodeCacheSize     int

	HTTPTimeout   time.Duration
	ForecastHours int

	// Shovel-time derivation for providers that only report snowfall.
	ShovelThresholdMM float64
	ShovelWindowHours int

	// ReportFreshness is how long a stored report is reused.
	ReportFreshness time.Duration

	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Report retention.
	StoreMaxHistory int           // max number of reports per location (0 = unlimited)
	StoreMaxAge     time.Duration // max age of reports (0 = unlimited)

	// RefreshInterval controls how often watched locations are refreshed.
	RefreshInterval time.Duration
	WatchLocations  []forecast.Coordinates

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment (and a .env file, if present)
// with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:                 getenvDefault("PORT", "8080"),
		LogLevel:             getenvDefault("LOG_LEVEL", "info"),
		LogFormat:            getenvDefault("LOG_FORMAT", "json"),
		ForecastAPIURL:       getenvDefault("FORECAST_API_URL", "http://127.0.0.1:8000"),
		OpenMeteoEnabled:     getenvDefault("OPENMETEO_ENABLED", "false") == "true",
		WeatherAPIKey:        os.Getenv("WEATHERAPI_API_KEY"),
		GoogleGeocoderAPIKey: os.Getenv("GOOGLE_GEOCODER_API_KEY"),
		StoreBackend:         strings.ToLower(getenvDefault("STORE_BACKEND", StoreMemory)),
		RedisAddr:            getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.GeocodeCacheSize, err = getenvInt("GEOCODE_CACHE_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.ForecastHours, err = getenvInt("FORECAST_HOURS", forecast.DefaultForecastHours); err != nil {
		return nil, err
	}
	if cfg.ShovelWindowHours, err = getenvInt("SHOVEL_WINDOW_HOURS", forecast.DefaultShovelWindowHours); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	// Roughly 24h at 15-minute intervals.
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 96); err != nil {
		return nil, err
	}
	if cfg.ShovelThresholdMM, err = getenvFloat("SHOVEL_THRESHOLD_MM", forecast.DefaultShovelThresholdMM); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ReportFreshness, err = getenvDuration("REPORT_FRESHNESS", "30m"); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.WatchLocations, err = ParseLocations(os.Getenv("WATCH_LOCATIONS")); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch {
	case c.StoreBackend != StoreMemory && c.StoreBackend != StoreRedis:
		return fmt.Errorf("invalid STORE_BACKEND %q: want %s or %s", c.StoreBackend, StoreMemory, StoreRedis)
	case c.ForecastHours < 2 || c.ForecastHours%2 != 0:
		return fmt.Errorf("invalid FORECAST_HOURS %d: must be an even number of hours >= 2", c.ForecastHours)
	case c.ShovelWindowHours <= 0:
		return fmt.Errorf("invalid SHOVEL_WINDOW_HOURS %d", c.ShovelWindowHours)
	case c.ShovelThresholdMM <= 0:
		return fmt.Errorf("invalid SHOVEL_THRESHOLD_MM %v", c.ShovelThresholdMM)
	case c.HTTPTimeout <= 0:
		return fmt.Errorf("invalid HTTP_TIMEOUT %s", c.HTTPTimeout)
	case c.ForecastAPIURL == "" && !c.OpenMeteoEnabled && c.WeatherAPIKey == "":
		return fmt.Errorf("no forecast provider configured: set FORECAST_API_URL, OPENMETEO_ENABLED or WEATHERAPI_API_KEY")
	}
	return nil
}

// ParseLocations parses "lat,lon;lat,lon" into coordinates.
func ParseLocations(s string) ([]forecast.Coordinates, error) {
	var locs []forecast.Coordinates
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		latStr, lonStr, ok := strings.Cut(part, ",")
		if !ok {
			return nil, fmt.Errorf("invalid WATCH_LOCATIONS entry %q: want lat,lon", part)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("invalid latitude in WATCH_LOCATIONS entry %q", part)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
		if err != nil || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("invalid longitude in WATCH_LOCATIONS entry %q", part)
		}
		locs = append(locs, forecast.Coordinates{Latitude: lat, Longitude: lon})
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
