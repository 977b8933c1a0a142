package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"finance-account-service/internal/config"
	redisclient "finance-account-service/pkg/redis"
)

// NewRedisClient connects to Redis, or returns nil when Redis is disabled.
func NewRedisClient(ctx context.Context, cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	if !cfg.Redis.Enabled {
		l.Info("Redis disabled, user cache and rate limiting are off")
		return nil, nil
	}

	rdb, err := redisclient.NewClient(ctx, redisclient.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}
