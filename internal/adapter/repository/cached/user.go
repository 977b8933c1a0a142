package cached

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"finance-account-service/internal/adapter/cache"
	domain "finance-account-service/internal/domain/user"
	"finance-account-service/internal/usecase/user"
)

// UserRepository implements user.Repository with a read-through cache
// in front of the email lookups of a persistent repository.
// Only present users are cached, so absence is always answered by the database.
type UserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a new caching repository. A nil cache disables caching.
func NewUserRepository(dbRepo user.Repository, c cache.UserCache, log *zap.Logger) *UserRepository {
	return &UserRepository{
		dbRepo: dbRepo,
		cache:  c,
		log:    log,
	}
}

// FindByEmail retrieves a user using the cache-aside pattern.
// Concurrent misses for the same email share one database read.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u := r.fromCache(ctx, email); u != nil {
		return u, nil
	}

	result, err, _ := r.group.Do(cache.Key(email), func() (any, error) {
		u, err := r.dbRepo.FindByEmail(ctx, email)
		if err != nil || u == nil {
			return u, err
		}

		if r.cache != nil {
			if err := r.cache.Set(ctx, u); err != nil {
				r.log.Warn("failed to cache user", zap.String("email", email), zap.Error(err))
			}
		}
		return u, nil
	})
	if err != nil {
		return nil, err
	}

	u, _ := result.(*domain.User)
	if u == nil {
		return nil, nil
	}
	// Callers sharing a flight must not alias each other's copy.
	clone := *u
	return &clone, nil
}

// ExistsByEmail answers true from a cache hit and asks the database otherwise.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if u := r.fromCache(ctx, email); u != nil {
		return true, nil
	}
	return r.dbRepo.ExistsByEmail(ctx, email)
}

// Create delegates to the DB repository and invalidates the email key.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (int64, error) {
	id, err := r.dbRepo.Create(ctx, u)
	if err != nil {
		return 0, err
	}

	if r.cache != nil {
		if err := r.cache.Delete(ctx, u.Email); err != nil {
			r.log.Warn("failed to invalidate cache after create", zap.String("email", u.Email), zap.Error(err))
		}
	}

	return id, nil
}

func (r *UserRepository) fromCache(ctx context.Context, email string) *domain.User {
	if r.cache == nil {
		return nil
	}

	u, err := r.cache.Get(ctx, email)
	if err != nil {
		r.log.Warn("cache get error, falling back to database", zap.String("email", email), zap.Error(err))
		return nil
	}
	return u
}
