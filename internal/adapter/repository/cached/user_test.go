package cached

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"finance-account-service/internal/adapter/cache"
	domain "finance-account-service/internal/domain/user"
)

// MockRepository is a mock implementation of user.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, u *domain.User) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

func setupCachedRepo(t *testing.T) (*UserRepository, *MockRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zaptest.NewLogger(t)
	dbRepo := new(MockRepository)
	repo := NewUserRepository(dbRepo, cache.NewRedisUserCache(client, time.Minute, log), log)
	return repo, dbRepo, mr
}

func TestFindByEmail_MissPopulatesCache(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()
	stored := &domain.User{ID: 1, Name: "Usuario", Email: "email@email.com", Password: "senha"}

	dbRepo.On("FindByEmail", ctx, "email@email.com").Return(stored, nil).Once()

	u, err := repo.FindByEmail(ctx, "email@email.com")
	require.NoError(t, err)
	assert.Equal(t, *stored, *u)
	assert.True(t, mr.Exists(cache.Key("email@email.com")))

	// Second call is served from cache
	u, err = repo.FindByEmail(ctx, "email@email.com")
	require.NoError(t, err)
	assert.Equal(t, *stored, *u)

	dbRepo.AssertNumberOfCalls(t, "FindByEmail", 1)
}

func TestFindByEmail_AbsentIsNotCached(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()

	dbRepo.On("FindByEmail", ctx, "email@email.com").Return(nil, nil).Twice()

	for i := 0; i < 2; i++ {
		u, err := repo.FindByEmail(ctx, "email@email.com")
		require.NoError(t, err)
		assert.Nil(t, u)
	}

	assert.False(t, mr.Exists(cache.Key("email@email.com")))
	dbRepo.AssertExpectations(t)
}

func TestFindByEmail_DatabaseError(t *testing.T) {
	repo, dbRepo, _ := setupCachedRepo(t)
	ctx := context.Background()
	dbErr := errors.New("connection refused")

	dbRepo.On("FindByEmail", ctx, "email@email.com").Return(nil, dbErr)

	u, err := repo.FindByEmail(ctx, "email@email.com")

	assert.Nil(t, u)
	assert.ErrorIs(t, err, dbErr)
}

func TestFindByEmail_CacheDownFallsBackToDatabase(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()
	stored := &domain.User{ID: 1, Email: "email@email.com", Password: "senha"}
	mr.Close()

	dbRepo.On("FindByEmail", ctx, "email@email.com").Return(stored, nil)

	u, err := repo.FindByEmail(ctx, "email@email.com")

	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
}

func TestExistsByEmail(t *testing.T) {
	repo, dbRepo, _ := setupCachedRepo(t)
	ctx := context.Background()
	stored := &domain.User{ID: 1, Email: "email@email.com", Password: "senha"}

	dbRepo.On("ExistsByEmail", ctx, "usuario@email.com").Return(false, nil).Once()
	dbRepo.On("FindByEmail", ctx, "email@email.com").Return(stored, nil).Once()

	exists, err := repo.ExistsByEmail(ctx, "usuario@email.com")
	require.NoError(t, err)
	assert.False(t, exists)

	// Warm the cache, then existence is answered without the database
	_, err = repo.FindByEmail(ctx, "email@email.com")
	require.NoError(t, err)

	exists, err = repo.ExistsByEmail(ctx, "email@email.com")
	require.NoError(t, err)
	assert.True(t, exists)

	dbRepo.AssertExpectations(t)
	dbRepo.AssertNotCalled(t, "ExistsByEmail", ctx, "email@email.com")
}

func TestCreate_InvalidatesCache(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()
	u := &domain.User{Name: "Usuario", Email: "email@email.com", Password: "senha"}
	require.NoError(t, mr.Set(cache.Key("email@email.com"), `{"id":9,"email":"email@email.com","password":"old"}`))

	dbRepo.On("Create", ctx, u).Return(int64(1), nil)

	id, err := repo.Create(ctx, u)

	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.False(t, mr.Exists(cache.Key("email@email.com")))
}

func TestCreate_Error(t *testing.T) {
	repo, dbRepo, mr := setupCachedRepo(t)
	ctx := context.Background()
	u := &domain.User{Name: "Usuario", Email: "email@email.com", Password: "senha"}
	require.NoError(t, mr.Set(cache.Key("email@email.com"), `{"id":9,"email":"email@email.com","password":"senha"}`))

	dbRepo.On("Create", ctx, u).Return(int64(0), errors.New("duplicate key"))

	_, err := repo.Create(ctx, u)

	assert.Error(t, err)
	assert.True(t, mr.Exists(cache.Key("email@email.com")))
}

func TestNilCache_DelegatesEverything(t *testing.T) {
	dbRepo := new(MockRepository)
	repo := NewUserRepository(dbRepo, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	dbRepo.On("FindByEmail", ctx, "email@email.com").Return(&domain.User{ID: 1}, nil)
	dbRepo.On("ExistsByEmail", ctx, "email@email.com").Return(true, nil)
	dbRepo.On("Create", ctx, mock.Anything).Return(int64(2), nil)

	u, err := repo.FindByEmail(ctx, "email@email.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	exists, err := repo.ExistsByEmail(ctx, "email@email.com")
	require.NoError(t, err)
	assert.True(t, exists)

	id, err := repo.Create(ctx, &domain.User{Email: "novo@email.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}

// slowRepository blocks lookups until released and counts them.
type slowRepository struct {
	MockRepository
	calls   atomic.Int32
	release chan struct{}
}

func (r *slowRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.calls.Add(1)
	<-r.release
	return &domain.User{ID: 1, Email: email, Password: "senha"}, nil
}

func TestFindByEmail_SingleFlight(t *testing.T) {
	dbRepo := &slowRepository{release: make(chan struct{})}
	repo := NewUserRepository(dbRepo, nil, zaptest.NewLogger(t))

	const callers = 10
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	results := make([]*domain.User, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			u, err := repo.FindByEmail(context.Background(), "email@email.com")
			assert.NoError(t, err)
			results[i] = u
		}(i)
	}

	started.Wait()
	// Give the callers time to join the in-flight lookup
	time.Sleep(50 * time.Millisecond)
	close(dbRepo.release)
	done.Wait()

	assert.Less(t, dbRepo.calls.Load(), int32(callers))
	for _, u := range results {
		require.NotNil(t, u)
		assert.Equal(t, "email@email.com", u.Email)
	}
	// Each caller owns its copy
	results[0].Name = "changed"
	assert.Empty(t, results[1].Name)
}
