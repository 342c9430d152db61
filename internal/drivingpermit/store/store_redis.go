package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"permitcheck/internal/drivingpermit/metrics"
	"permitcheck/internal/drivingpermit/models"
)

const redisCheckKeyPrefix = "permitcheck:check:"

// RedisStore persists check records in Redis with TTL-based eviction.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewRedisStore constructs a Redis-backed check record store.
// Usage: pass a configured Redis client; metrics may be nil.
func NewRedisStore(client *redis.Client, ttl time.Duration, metrics *metrics.Metrics) *RedisStore {
	return &RedisStore{
		client:  client,
		ttl:     ttl,
		metrics: metrics,
	}
}

// Save writes the record as JSON under the session key.
//
// Side effects: performs a Redis SET; overwrites any existing entry.
func (s *RedisStore) Save(ctx context.Context, sessionID string, record models.CheckRecord) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode check record: %w", err)
	}
	if err := s.client.Set(ctx, checkKey(sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save check record: %w", err)
	}
	return nil
}

// Find loads the record for the session.
//
// Errors: returns ErrNotFound on a miss; wraps Redis or JSON decode errors.
func (s *RedisStore) Find(ctx context.Context, sessionID string) (*models.CheckRecord, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	data, err := s.client.Get(ctx, checkKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.recordLookup(false)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find check record: %w", err)
	}

	var record models.CheckRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode check record: %w", err)
	}
	s.recordLookup(true)
	return &record, nil
}

func (s *RedisStore) recordLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordStoreLookup(hit)
	}
}

func checkKey(sessionID string) string {
	return redisCheckKeyPrefix + sessionID
}
