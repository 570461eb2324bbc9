package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"habitweb/pkg/config"
)

// NewRedisClient returns a client, or nil when no address is configured.
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("Redis address not configured, using in-process storage")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis ping failed, continuing", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("Redis connection established", zap.String("addr", cfg.Addr))
	}
	return rdb
}
