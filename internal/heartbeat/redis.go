// Package heartbeat implements the Redis-backed telescope liveness
// signal store.
package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "heartbeat:"

// RedisStore keeps the latest heartbeat per telescope in Redis. Ingest
// writes land here and every validation reads the key fresh, so a
// signal recorded by one instance is visible to all.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{
		client: client,
		logger: logger.With().Str("component", "heartbeat").Logger(),
	}, nil
}

// LastCommunication returns the telescope's most recent heartbeat and
// whether one exists.
func (r *RedisStore) LastCommunication(ctx context.Context, telescopeID string) (time.Time, bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+telescopeID).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read heartbeat for %s: %w", telescopeID, err)
	}
	at, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		// A corrupt value is treated as no signal rather than an outage.
		r.logger.Warn().Str("telescope_id", telescopeID).Str("value", val).Msg("unparseable heartbeat value")
		return time.Time{}, false, nil
	}
	return at, true, nil
}

// Record stores the telescope's latest heartbeat timestamp.
func (r *RedisStore) Record(ctx context.Context, telescopeID string, at time.Time) error {
	err := r.client.Set(ctx, keyPrefix+telescopeID, at.Format(time.RFC3339Nano), 0).Err()
	if err != nil {
		return fmt.Errorf("record heartbeat for %s: %w", telescopeID, err)
	}
	return nil
}

// Ping reports connection health for readiness probes.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
