package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/should-i-shovel/internal/forecast"
)

// Refresher regenerates the stored report for a location.
type Refresher interface {
	Refresh(ctx context.Context, loc forecast.Coordinates) (forecast.Report, error)
}

// Scheduler periodically refreshes shovel reports for watched locations so
// map clicks near them are answered from the store.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	refresher  Refresher
	locations  []forecast.Coordinates
	interval   time.Duration
	jobTimeout time.Duration
	logger     *zap.SugaredLogger
}

// New creates a new Scheduler.
func New(locations []forecast.Coordinates, interval time.Duration, refresher Refresher, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		refresher:  refresher,
		locations:  locations,
		interval:   interval,
		jobTimeout: 30 * time.Second,
		logger:     logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info("scheduler: no watch locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(func() { s.RunOnce() }); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Infow("scheduler started", "locations", len(s.locations), "interval_minutes", minutes)
	return nil
}

// RunOnce refreshes every watched location concurrently and returns the
// number of refreshes that succeeded.
func (s *Scheduler) RunOnce() int {
	s.logger.Debug("scheduler: running shovel refresh job")

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, loc := range s.locations {
		wg.Add(1)
		go func(loc forecast.Coordinates) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
			defer cancel()

			report, err := s.refresher.Refresh(ctx, loc)
			if err != nil {
				s.logger.Warnw("scheduler: refresh failed", "location", loc.Key(), "error", err)
				return
			}
			s.logger.Debugw("scheduler: refreshed", "location", loc.Key(), "verdict", report.Verdict)

			mu.Lock()
			ok++
			mu.Unlock()
		}(loc)
	}
	wg.Wait()

	s.logger.Debugw("scheduler: completed shovel refresh job", "succeeded", ok, "total", len(s.locations))
	return ok
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
