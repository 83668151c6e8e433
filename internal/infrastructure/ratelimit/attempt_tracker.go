package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/propfolio/backend/internal/infrastructure/config"
)

// RedisAttemptTracker records payment attempts in Redis sorted sets so the
// velocity signal works across multiple instances. Each actor gets one key;
// members are scored by attempt time and pruned on read.
type RedisAttemptTracker struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
}

// NewRedisAttemptTracker creates a tracker with its own Redis connection
func NewRedisAttemptTracker(cfg config.RedisConfig) (*RedisAttemptTracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisAttemptTrackerWithClient(client, ""), nil
}

// NewRedisAttemptTrackerWithClient creates a tracker with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisAttemptTrackerWithClient(client *redis.Client, keyPrefix string) *RedisAttemptTracker {
	if keyPrefix == "" {
		keyPrefix = "payment:attempts:"
	}
	return &RedisAttemptTracker{
		client:    client,
		keyPrefix: keyPrefix,
		// Retention only needs to cover the longest velocity window anyone
		// asks about; an hour is comfortably past that.
		retention: time.Hour,
	}
}

// CountRecent returns how many attempts the actor made within the window
func (t *RedisAttemptTracker) CountRecent(ctx context.Context, actorID uuid.UUID, window time.Duration) (int, error) {
	key := t.keyPrefix + actorID.String()
	cutoff := time.Now().Add(-window).UnixNano()

	// Drop entries older than the retention horizon so keys do not grow
	// unbounded for chatty actors.
	horizon := time.Now().Add(-t.retention).UnixNano()
	if err := t.client.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(horizon, 10)).Err(); err != nil {
		return 0, fmt.Errorf("failed to prune attempt history: %w", err)
	}

	count, err := t.client.ZCount(ctx, key, strconv.FormatInt(cutoff, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count recent attempts: %w", err)
	}
	return int(count), nil
}

// RecordAttempt appends an attempt for the actor at the current time
func (t *RedisAttemptTracker) RecordAttempt(ctx context.Context, actorID uuid.UUID) error {
	key := t.keyPrefix + actorID.String()
	now := time.Now()

	pipe := t.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.New().String(),
	})
	pipe.Expire(ctx, key, t.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (t *RedisAttemptTracker) Close() error {
	return t.client.Close()
}
