package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/should-i-shovel/internal/forecast"
	"github.com/i474232898/should-i-shovel/internal/logging"
	"github.com/i474232898/should-i-shovel/internal/verdict"
)

type recordingRefresher struct {
	mu     sync.Mutex
	seen   []string
	failOn string
}

func (r *recordingRefresher) Refresh(_ context.Context, loc forecast.Coordinates) (forecast.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, loc.Key())
	if loc.Key() == r.failOn {
		return forecast.Report{}, errors.New("upstream down")
	}
	return forecast.Report{Location: loc, Verdict: verdict.No}, nil
}

func TestScheduler_StartWithoutLocations(t *testing.T) {
	s := New(nil, time.Minute, &recordingRefresher{}, logging.Nop())
	require.NoError(t, s.Start())
	s.Stop()
}

func TestScheduler_RunOnce(t *testing.T) {
	locs := []forecast.Coordinates{
		{Latitude: 49.89, Longitude: -97.13},
		{Latitude: 45.50, Longitude: -73.57},
		{Latitude: 53.55, Longitude: -113.49},
	}
	r := &recordingRefresher{failOn: locs[1].Key()}
	s := New(locs, time.Minute, r, logging.Nop())

	assert.Equal(t, 2, s.RunOnce())
	assert.ElementsMatch(t, []string{locs[0].Key(), locs[1].Key(), locs[2].Key()}, r.seen)
}

func TestScheduler_StartRunsImmediately(t *testing.T) {
	locs := []forecast.Coordinates{{Latitude: 49.89, Longitude: -97.13}}
	r := &recordingRefresher{}
	s := New(locs, time.Hour, r, logging.Nop())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.seen) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
