// api/db/redis.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/campushq/sentra/api/logging"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// RecordAccessEvent appends an access event to the subject's sliding
// window. Events are ZSET members scored by nanosecond timestamp so
// counting a trailing window is a range operation.
func RecordAccessEvent(ctx context.Context, subjectID, action string, retention time.Duration) error {
	now := time.Now().UnixNano()
	key := fmt.Sprintf("activity:%s:%s", action, subjectID)

	pipe := RedisClient.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-retention.Nanoseconds()))
	pipe.Expire(ctx, key, retention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record access event: %w", err)
	}
	return nil
}

// CountAccessEvents counts the subject's events for the given actions
// within the trailing window, across all service instances.
func CountAccessEvents(ctx context.Context, subjectID string, actions []string, window time.Duration) (int64, error) {
	now := time.Now().UnixNano()
	min := fmt.Sprintf("%d", now-window.Nanoseconds())

	var total int64
	for _, action := range actions {
		key := fmt.Sprintf("activity:%s:%s", action, subjectID)
		count, err := RedisClient.ZCount(ctx, key, min, "+inf").Result()
		if err != nil {
			return 0, fmt.Errorf("failed to count access events: %w", err)
		}
		total += count
	}
	return total, nil
}

// RecordLoginIP remembers a successful login address. The ZSET keeps
// one member per distinct address with the latest login time as score.
func RecordLoginIP(ctx context.Context, subjectID, ip string, retention time.Duration) error {
	now := time.Now().UnixNano()
	key := fmt.Sprintf("loginip:%s", subjectID)

	pipe := RedisClient.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: ip})
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-retention.Nanoseconds()))
	pipe.Expire(ctx, key, retention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record login IP: %w", err)
	}
	return nil
}

// KnownLoginIPs returns the subject's distinct login addresses within
// the trailing window.
func KnownLoginIPs(ctx context.Context, subjectID string, window time.Duration) ([]string, error) {
	now := time.Now().UnixNano()
	key := fmt.Sprintf("loginip:%s", subjectID)

	ips, err := RedisClient.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", now-window.Nanoseconds()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch known login IPs: %w", err)
	}
	return ips, nil
}

// AddDownloadBytes adds to the subject's rolling download total and
// returns the new total. The key expires with the window, so the
// accumulator resets globally rather than per instance.
func AddDownloadBytes(ctx context.Context, subjectID string, n int64, window time.Duration) (int64, error) {
	key := fmt.Sprintf("download:%s", subjectID)

	pipe := RedisClient.Pipeline()
	incr := pipe.IncrBy(ctx, key, n)
	pipe.ExpireNX(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to add download bytes: %w", err)
	}
	return incr.Val(), nil
}

// RateLimit implements a sliding-window request limiter keyed by
// caller identity.
func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
