package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "finance-account-service/internal/domain/user"
)

// UserCache defines the interface for caching users by email.
type UserCache interface {
	// Get retrieves a user from cache by email.
	// Returns nil if the user is not cached.
	Get(ctx context.Context, email string) (*domain.User, error)

	// Set stores a user in cache with the configured TTL.
	Set(ctx context.Context, user *domain.User) error

	// Delete removes a user from cache by email.
	Delete(ctx context.Context, email string) error
}

// RedisUserCache implements UserCache using Redis as the backing store.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// cachedUser is the stored representation. Unlike domain.User it keeps
// the password, which authentication needs on a cache hit.
type cachedUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewRedisUserCache creates a new Redis-backed user cache.
func NewRedisUserCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisUserCache {
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Key returns the Redis key for an email.
func Key(email string) string {
	return "user:email:" + email
}

// Get retrieves a user from Redis cache.
func (c *RedisUserCache) Get(ctx context.Context, email string) (*domain.User, error) {
	data, err := c.client.Get(ctx, Key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("email", email))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		c.log.Error("failed to unmarshal cached user", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.String("email", email))
	return &domain.User{
		ID:       cu.ID,
		Name:     cu.Name,
		Email:    cu.Email,
		Password: cu.Password,
	}, nil
}

// Set stores a user in Redis cache with TTL.
func (c *RedisUserCache) Set(ctx context.Context, user *domain.User) error {
	if user == nil {
		return fmt.Errorf("cannot cache nil user")
	}

	data, err := json.Marshal(cachedUser{
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Password: user.Password,
	})
	if err != nil {
		c.log.Error("failed to marshal user for cache", zap.Int64("user_id", user.ID), zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, Key(user.Email), data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set cache", zap.Int64("user_id", user.ID), zap.Error(err))
		return err
	}

	c.log.Debug("cached user", zap.Int64("user_id", user.ID), zap.Duration("ttl", c.ttl))
	return nil
}

// Delete removes a user from Redis cache.
func (c *RedisUserCache) Delete(ctx context.Context, email string) error {
	if err := c.client.Del(ctx, Key(email)).Err(); err != nil {
		c.log.Error("failed to delete from cache", zap.String("email", email), zap.Error(err))
		return err
	}

	c.log.Debug("deleted from cache", zap.String("email", email))
	return nil
}
