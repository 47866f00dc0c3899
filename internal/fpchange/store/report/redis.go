package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"accai/internal/fpchange/models"
	"accai/pkg/platform/sentinel"
)

const keyPrefix = "fpchange:report:"

// RedisStore keeps reports as JSON values with an expiry.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis creates a Redis-backed report store. A non-positive ttl uses DefaultTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func key(correlationID string) string {
	return keyPrefix + correlationID
}

// Save stores r under its correlation id.
func (s *RedisStore) Save(ctx context.Context, r *models.Report) error {
	if r == nil || r.CorrelationID == "" {
		return fmt.Errorf("report correlation id is required: %w", sentinel.ErrInvalidInput)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := s.client.Set(ctx, key(r.CorrelationID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save report: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

// Get returns the report stored under correlationID.
func (s *RedisStore) Get(ctx context.Context, correlationID string) (*models.Report, error) {
	payload, err := s.client.Get(ctx, key(correlationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("report %s: %w", correlationID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("load report: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	var r models.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
