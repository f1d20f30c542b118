// Package cache serves completed-period reports from Redis. A week that has
// already closed can never change, so its report is cached aggressively;
// in-flight periods are always recomputed.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/credia/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const completedReportTTL = 30 * 24 * time.Hour

// ReportCache stores serialized reports keyed by period.
type ReportCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}

// WeeklyReportKey is the cache key for one week's report.
func WeeklyReportKey(year, week int) string {
	return fmt.Sprintf("report:weekly:%d:%02d", year, week)
}

// MonthlyReportKey is the cache key for one month's report.
func MonthlyReportKey(year int, month time.Month) string {
	return fmt.Sprintf("report:monthly:%d:%02d", year, int(month))
}

// NewRedisClient connects to Redis when an address is configured. A nil
// client disables caching; callers get a no-op cache instead of an error so
// the service runs without Redis in small deployments.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable, report caching degraded", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

type reportCache struct {
	client *redis.Client
}

func NewReportCache(client *redis.Client) ReportCache {
	return &reportCache{client: client}
}

func (c *reportCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *reportCache) Set(ctx context.Context, key string, value any) error {
	if c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, completedReportTTL).Err()
}

func (c *reportCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

var Module = fx.Module("cache",
	fx.Provide(NewRedisClient),
	fx.Provide(NewReportCache),
)
