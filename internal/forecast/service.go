package forecast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/i474232898/should-i-shovel/internal/observability"
)

const (
	DefaultForecastHours = 48
	DefaultFreshness     = 30 * time.Minute
	DefaultFetchTimeout  = 30 * time.Second
)

// Service orchestrates fetching from providers, computing verdicts and
// persisting reports.
type Service struct {
	store     Store
	providers []Provider
	geocoder  Geocoder

	hours        int
	freshness    time.Duration
	fetchTimeout time.Duration

	clock   clockwork.Clock
	logger  *zap.SugaredLogger
	metrics *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithGeocoder(g Geocoder) Option { return func(s *Service) { s.geocoder = g } }

func WithForecastHours(hours int) Option {
	return func(s *Service) {
		if hours > 0 {
			s.hours = hours
		}
	}
}

// WithFreshness sets how long a stored report is served before it is regenerated.
func WithFreshness(d time.Duration) Option { return func(s *Service) { s.freshness = d } }

func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

func WithClock(c clockwork.Clock) Option { return func(s *Service) { s.clock = c } }

func WithLogger(l *zap.SugaredLogger) Option { return func(s *Service) { s.logger = l } }

func WithMetrics(m *observability.Metrics) Option { return func(s *Service) { s.metrics = m } }

// NewService creates a new Service.
func NewService(store Store, providers []Provider, opts ...Option) *Service {
	s := &Service{
		store:        store,
		providers:    providers,
		hours:        DefaultForecastHours,
		freshness:    DefaultFreshness,
		fetchTimeout: DefaultFetchTimeout,
		clock:        clockwork.NewRealClock(),
		logger:       zap.NewNop().Sugar(),
		metrics:      observability.NewMetricsForTesting(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchForecast queries all providers concurrently for loc, drops responses
// with malformed series and merges the rest. It returns the merged forecast
// and the names of the providers that contributed to it.
func (s *Service) FetchForecast(ctx context.Context, loc Coordinates) (Forecast, []string, error) {
	if len(s.providers) == 0 {
		s.logger.Errorw("no forecast providers configured", "location", loc.Key())
		return Forecast{}, nil, fmt.Errorf("no forecast providers configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	type result struct {
		forecast Forecast
		err      error
	}
	results := make([]result, len(s.providers))

	var wg sync.WaitGroup
	for i, p := range s.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()

			start := s.clock.Now()
			f, err := p.FetchForecast(ctx, loc, s.hours)
			s.metrics.ProviderDuration.WithLabelValues(p.Name()).Observe(s.clock.Since(start).Seconds())

			if err == nil {
				err = f.Validate()
			}
			results[i] = result{forecast: f, err: err}
		}(i, p)
	}
	wg.Wait()

	var (
		forecasts  []Forecast
		names      []string
		invalidErr error
	)
	for i, r := range results {
		name := s.providers[i].Name()
		switch {
		case r.err == nil:
			s.metrics.ProviderRequests.WithLabelValues(name, "success").Inc()
			forecasts = append(forecasts, r.forecast)
			names = append(names, name)
		case IsInvalidInput(r.err):
			s.metrics.ProviderRequests.WithLabelValues(name, "invalid").Inc()
			s.metrics.InvalidForecasts.Inc()
			s.logger.Warnw("provider returned malformed forecast", "provider", name, "location", loc.Key(), "error", r.err)
			invalidErr = r.err
		default:
			// Log and continue; we want partial success when possible.
			s.metrics.ProviderRequests.WithLabelValues(name, "error").Inc()
			s.logger.Warnw("provider forecast failed", "provider", name, "location", loc.Key(), "error", r.err)
		}
	}

	if len(forecasts) == 0 {
		if invalidErr != nil {
			return Forecast{}, nil, invalidErr
		}
		return Forecast{}, nil, ErrNoForecast
	}

	return AggregateForecasts(forecasts), names, nil
}

// Assess returns the shovel report for loc, reusing the stored one while it
// is fresh.
func (s *Service) Assess(ctx context.Context, loc Coordinates) (Report, error) {
	latest, err := s.store.GetLatest(ctx, loc)
	switch {
	case err == nil && s.clock.Since(latest.GeneratedAt) < s.freshness:
		s.metrics.ReportCache.WithLabelValues("hit").Inc()
		return latest, nil
	case err == nil:
		s.metrics.ReportCache.WithLabelValues("stale").Inc()
	case errors.Is(err, ErrNotFound):
		s.metrics.ReportCache.WithLabelValues("miss").Inc()
	default:
		s.metrics.ReportCache.WithLabelValues("miss").Inc()
		s.logger.Warnw("report lookup failed", "location", loc.Key(), "error", err)
	}

	report, err := s.generate(ctx, loc)
	if err != nil {
		return Report{}, err
	}
	if err := s.store.SaveReport(ctx, report); err != nil {
		// The caller still gets the verdict; only the cache is missing it.
		s.logger.Errorw("failed to save report", "location", loc.Key(), "error", err)
	}
	return report, nil
}

// Refresh fetches a new forecast for loc and stores the resulting report
// regardless of what is already stored.
func (s *Service) Refresh(ctx context.Context, loc Coordinates) (Report, error) {
	report, err := s.generate(ctx, loc)
	if err != nil {
		return Report{}, err
	}
	if err := s.store.SaveReport(ctx, report); err != nil {
		return Report{}, fmt.Errorf("save report for %s: %w", loc.Key(), err)
	}
	return report, nil
}

func (s *Service) generate(ctx context.Context, loc Coordinates) (Report, error) {
	f, providers, err := s.FetchForecast(ctx, loc)
	if err != nil {
		return Report{}, err
	}

	v, err := f.Verdict()
	if err != nil {
		return Report{}, err
	}
	s.metrics.Verdicts.WithLabelValues(string(v)).Inc()
	s.logger.Debugw("computed verdict", "location", loc.Key(), "verdict", v, "providers", providers)

	return Report{
		ID:          uuid.New(),
		Location:    loc,
		GeneratedAt: s.clock.Now().UTC(),
		Verdict:     v,
		Message:     v.Message(),
		Providers:   providers,
		Data:        f.Data,
	}, nil
}

// ResolveAddress geocodes a free-form address.
func (s *Service) ResolveAddress(ctx context.Context, address string) (Coordinates, error) {
	if s.geocoder == nil {
		return Coordinates{}, fmt.Errorf("address lookup is not configured")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinates{}, ErrAddressNotFound
	}
	return s.geocoder.Geocode(ctx, address)
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(ctx context.Context, loc Coordinates) (Report, error) {
	return s.store.GetLatest(ctx, loc)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(ctx context.Context, loc Coordinates, from, to time.Time) ([]Report, error) {
	return s.store.GetRange(ctx, loc, from, to)
}
