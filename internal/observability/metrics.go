package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the shovel service.
type Metrics struct {
	// Verdicts computed, labelled by verdict.
	Verdicts *prometheus.CounterVec

	// Provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,error,invalid}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	InvalidForecasts prometheus.Counter

	// Cache lookups.
	ReportCache  *prometheus.CounterVec // labels: result={hit,miss,stale}
	GeocodeCache *prometheus.CounterVec // labels: result={hit,miss}

	WatchLocations prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Verdicts,
		m.ProviderRequests,
		m.ProviderDuration,
		m.InvalidForecasts,
		m.ReportCache,
		m.GeocodeCache,
		m.WatchLocations,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shovel",
			Name:      "verdicts_total",
			Help:      "Verdicts computed, by label.",
		}, []string{"verdict"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shovel",
			Name:      "provider_requests_total",
			Help:      "Forecast provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shovel",
			Name:      "provider_request_duration_seconds",
			Help:      "Forecast provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		InvalidForecasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shovel",
			Name:      "invalid_forecasts_total",
			Help:      "Provider forecasts rejected for malformed series.",
		}),
		ReportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shovel",
			Name:      "report_cache_total",
			Help:      "Stored report lookups by result.",
		}, []string{"result"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shovel",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		WatchLocations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shovel",
			Name:      "watch_locations",
			Help:      "Number of locations refreshed by the scheduler.",
		}),
	}
}
