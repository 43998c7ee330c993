// Package redissource provides a paged source over a Redis list of JSON
// encoded elements.
package redissource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidElement indicates a list element that does not decode into T.
	ErrInvalidElement = errors.New("invalid list element")

	// ErrNoStats indicates that no completed read was recorded for the list.
	ErrNoStats = errors.New("no read stats recorded")
)

// statsKeyPrefix prefixes the hash holding the stats of the last full read.
const statsKeyPrefix = "pagestream:reads:"

// ReadStats describes the last read that reached the end of a list.
type ReadStats struct {
	Pages      int
	PageSize   int
	Count      int
	FinishedAt time.Time
}

// ListSource reads pages of T from a Redis list.
type ListSource[T any] struct {
	redis  *redis.Client
	key    string
	logger zerolog.Logger
}

// NewListSource creates a source over the list stored at key.
func NewListSource[T any](redisClient *redis.Client, key string) *ListSource[T] {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if key == "" {
		panic("list key cannot be empty")
	}
	return &ListSource[T]{
		redis:  redisClient,
		key:    key,
		logger: log.With().Str("component", "redis-source").Str("key", key).Logger(),
	}
}

// Key returns the list key.
func (s *ListSource[T]) Key() string {
	return s.key
}

// StatsKey returns the key of the read stats hash.
func (s *ListSource[T]) StatsKey() string {
	return statsKeyPrefix + s.key
}

// FetchPage reads one page with LRANGE. A missing list reads as empty.
func (s *ListSource[T]) FetchPage(ctx context.Context, pageNumber, pageSize int) ([]T, error) {
	start := int64(pageNumber-1) * int64(pageSize)
	stop := start + int64(pageSize) - 1

	raw, err := s.redis.LRange(ctx, s.key, start, stop).Result()
	if err != nil {
		RedisErrors.WithLabelValues("lrange").Inc()
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	RedisPages.Inc()

	items := make([]T, 0, len(raw))
	for i, data := range raw {
		var item T
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return nil, fmt.Errorf("%w at index %d: %v", ErrInvalidElement, start+int64(i), err)
		}
		items = append(items, item)
	}

	s.logger.Debug().
		Int("page", pageNumber).
		Int("items", len(items)).
		Msg("Page read")

	return items, nil
}

// Append pushes values to the tail of the list and returns the new length.
func (s *ListSource[T]) Append(ctx context.Context, values ...T) (int64, error) {
	if len(values) == 0 {
		return s.Len(ctx)
	}

	encoded := make([]any, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return 0, fmt.Errorf("marshal list element: %w", err)
		}
		encoded[i] = data
	}

	n, err := s.redis.RPush(ctx, s.key, encoded...).Result()
	if err != nil {
		RedisErrors.WithLabelValues("rpush").Inc()
		return 0, fmt.Errorf("redis rpush: %w", err)
	}
	return n, nil
}

// Len returns the list length.
func (s *ListSource[T]) Len(ctx context.Context) (int64, error) {
	n, err := s.redis.LLen(ctx, s.key).Result()
	if err != nil {
		RedisErrors.WithLabelValues("llen").Inc()
		return 0, fmt.Errorf("redis llen: %w", err)
	}
	return n, nil
}

// OnBeforeFirstRead drops the stats of an earlier read.
func (s *ListSource[T]) OnBeforeFirstRead(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.StatsKey()).Err(); err != nil {
		RedisErrors.WithLabelValues("del").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// OnAfterLastRead records the stats of the finished read.
func (s *ListSource[T]) OnAfterLastRead(ctx context.Context, pageNumber, pageSize, count int) error {
	fields := map[string]any{
		"pages":       pageNumber,
		"page_size":   pageSize,
		"count":       count,
		"finished_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.redis.HSet(ctx, s.StatsKey(), fields).Err(); err != nil {
		RedisErrors.WithLabelValues("hset").Inc()
		return fmt.Errorf("redis hset: %w", err)
	}

	s.logger.Info().
		Int("pages", pageNumber).
		Int("count", count).
		Msg("List read recorded")
	return nil
}

// ReadStats returns the stats of the last finished read.
// Returns ErrNoStats if no read finished since the last one started.
func (s *ListSource[T]) ReadStats(ctx context.Context) (*ReadStats, error) {
	fields, err := s.redis.HGetAll(ctx, s.StatsKey()).Result()
	if err != nil {
		RedisErrors.WithLabelValues("hgetall").Inc()
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNoStats
	}

	var stats ReadStats
	for name, dst := range map[string]*int{
		"pages":     &stats.Pages,
		"page_size": &stats.PageSize,
		"count":     &stats.Count,
	} {
		if *dst, err = strconv.Atoi(fields[name]); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	if stats.FinishedAt, err = time.Parse(time.RFC3339Nano, fields["finished_at"]); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	return &stats, nil
}
