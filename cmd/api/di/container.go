package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"finance-account-service/cmd/api/infrastructure"
	"finance-account-service/internal/adapter/cache"
	"finance-account-service/internal/adapter/db/postgres"
	ginhandler "finance-account-service/internal/adapter/gin/handler"
	"finance-account-service/internal/adapter/grpc/middleware"
	"finance-account-service/internal/adapter/repository/cached"
	"finance-account-service/internal/config"
	"finance-account-service/internal/usecase/user"
	redisclient "finance-account-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client // nil when Redis is disabled
	UserUC      user.Usecase
	RateLimiter *middleware.RateLimiter
	GinHandler  *ginhandler.UserHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	var (
		repo        user.Repository = postgres.NewUserRepoPG(db, l)
		redisClient *redis.Client
	)

	if rdb != nil {
		redisClient = rdb.Client
		userCache := cache.NewRedisUserCache(
			redisClient,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			l,
		)
		repo = cached.NewUserRepository(repo, userCache, l)
	}

	rateLimiter := middleware.NewRateLimiter(redisClient, middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		WindowSeconds:     cfg.RateLimit.WindowSeconds,
		Enabled:           cfg.RateLimit.Enabled,
	}, l)

	userUC := user.New(repo, l)

	return &Container{
		Config:      cfg,
		Logger:      l,
		DB:          db,
		RedisClient: rdb,
		UserUC:      userUC,
		RateLimiter: rateLimiter,
		GinHandler:  ginhandler.NewUserHandler(userUC, l),
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
