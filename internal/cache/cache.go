package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dashboardKeyPrefix = "shareflow:dashboard:" // shareflow:dashboard:{project_id}:{inflow}

// ErrMiss is returned when no cached value exists.
var ErrMiss = errors.New("cache: miss")

// Cache stores computed dashboards so repeated reads skip recomputation.
type Cache interface {
	GetDashboard(ctx context.Context, projectID, inflow string, dst any) error
	PutDashboard(ctx context.Context, projectID, inflow string, v any) error
	// Invalidate drops every cached dashboard of a project.
	Invalidate(ctx context.Context, projectID string) error
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func dashboardKey(projectID, inflow string) string {
	return dashboardKeyPrefix + projectID + ":" + inflow
}

func (c *RedisCache) GetDashboard(ctx context.Context, projectID, inflow string, dst any) error {
	data, err := c.client.Get(ctx, dashboardKey(projectID, inflow)).Bytes()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("get dashboard: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal dashboard: %w", err)
	}
	return nil
}

func (c *RedisCache) PutDashboard(ctx context.Context, projectID, inflow string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal dashboard: %w", err)
	}
	if err := c.client.Set(ctx, dashboardKey(projectID, inflow), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set dashboard: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, projectID string) error {
	iter := c.client.Scan(ctx, 0, dashboardKeyPrefix+projectID+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan dashboards: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete dashboards: %w", err)
	}
	return nil
}

// Noop never stores anything; every read misses.
type Noop struct{}

func (Noop) GetDashboard(context.Context, string, string, any) error { return ErrMiss }
func (Noop) PutDashboard(context.Context, string, string, any) error { return nil }
func (Noop) Invalidate(context.Context, string) error                { return nil }
