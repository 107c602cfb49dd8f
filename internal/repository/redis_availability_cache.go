package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/drvarun1995-pixel/sim-bleepy-booking/internal/domain"
	pkgredis "github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/redis"
	"github.com/drvarun1995-pixel/sim-bleepy-booking/pkg/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RedisAvailabilityCache caches availability snapshots under a short TTL so
// repeated check calls for a hot event skip the count query. Writers must
// invalidate on every booking mutation.
type RedisAvailabilityCache struct {
	client *pkgredis.Client
	ttl    time.Duration
}

// NewRedisAvailabilityCache creates a new RedisAvailabilityCache
func NewRedisAvailabilityCache(client *pkgredis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func availabilityKey(eventID string) string {
	return "availability:" + eventID
}

// Get returns the cached snapshot, or (nil, false, nil) on a miss
func (c *RedisAvailabilityCache) Get(ctx context.Context, eventID string) (*domain.Availability, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.get")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	raw, err := c.client.Get(ctx, availabilityKey(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache_hit", false))
		span.SetStatus(codes.Ok, "")
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("failed to read availability cache: %w", err)
	}

	var a domain.Availability
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		// Corrupt entry, treat as a miss and drop it
		_ = c.client.Del(ctx, availabilityKey(eventID)).Err()
		span.SetAttributes(attribute.Bool("cache_hit", false))
		span.SetStatus(codes.Ok, "")
		return nil, false, nil
	}

	span.SetAttributes(attribute.Bool("cache_hit", true))
	span.SetStatus(codes.Ok, "")
	return &a, true, nil
}

// Set stores the snapshot under the cache TTL
func (c *RedisAvailabilityCache) Set(ctx context.Context, eventID string, a *domain.Availability) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.set")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	raw, err := json.Marshal(a)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to marshal availability: %w", err)
	}

	if err := c.client.Set(ctx, availabilityKey(eventID), raw, c.ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to write availability cache: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Invalidate drops the cached snapshot after a booking mutation
func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, eventID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.availability.invalidate")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if err := c.client.Del(ctx, availabilityKey(eventID)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to invalidate availability cache: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure RedisAvailabilityCache implements AvailabilityCache
var _ AvailabilityCache = (*RedisAvailabilityCache)(nil)
