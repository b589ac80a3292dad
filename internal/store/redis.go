package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/i474232898/should-i-shovel/internal/forecast"
)

const redisKeyPrefix = "shovel:reports:"

// RedisStore keeps each location's reports as a JSON list, newest first.
// The list is trimmed to maxHistory entries and expires maxAge after the last
// write.
type RedisStore struct {
	client     redis.Cmdable
	maxHistory int
	maxAge     time.Duration
}

// NewRedisStore wraps an existing client, cluster client or ring.
func NewRedisStore(client redis.Cmdable, maxHistory int, maxAge time.Duration) *RedisStore {
	return &RedisStore{
		client:     client,
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func reportKey(loc forecast.Coordinates) string {
	return redisKeyPrefix + loc.Key()
}

// SaveReport pushes the report onto the location's list and applies retention.
func (s *RedisStore) SaveReport(ctx context.Context, report forecast.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := reportKey(report.Location)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	if s.maxHistory > 0 {
		pipe.LTrim(ctx, key, 0, int64(s.maxHistory-1))
	}
	if s.maxAge > 0 {
		pipe.Expire(ctx, key, s.maxAge)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *RedisStore) GetLatest(ctx context.Context, loc forecast.Coordinates) (forecast.Report, error) {
	data, err := s.client.LIndex(ctx, reportKey(loc), 0).Bytes()
	if errors.Is(err, redis.Nil) {
		return forecast.Report{}, ErrNotFound
	}
	if err != nil {
		return forecast.Report{}, fmt.Errorf("failed to read report: %w", err)
	}

	var report forecast.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return forecast.Report{}, fmt.Errorf("failed to decode report: %w", err)
	}
	return report, nil
}

// GetRange returns reports generated between from and to (inclusive), oldest first.
func (s *RedisStore) GetRange(ctx context.Context, loc forecast.Coordinates, from, to time.Time) ([]forecast.Report, error) {
	items, err := s.client.LRange(ctx, reportKey(loc), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	var result []forecast.Report
	for i := len(items) - 1; i >= 0; i-- {
		var report forecast.Report
		if err := json.Unmarshal([]byte(items[i]), &report); err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		if inRange(report.GeneratedAt, from, to) {
			result = append(result, report)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
