package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setLocalEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir())
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", ":memory:")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("GRPC_PORT", "0")
	t.Setenv("HTTP_PORT", "0")
	t.Setenv("GIN_PORT", "0")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "2")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_OUTPUT_PATH", "stderr")
}

func TestNew(t *testing.T) {
	setLocalEnv(t)

	a, err := New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Container.Close() })

	assert.Equal(t, "sqlite", a.Config.DB.Driver)
	assert.Nil(t, a.Container.RedisClient)
	assert.NotNil(t, a.Server.GRPC)
	assert.NotNil(t, a.Server.Gin)
}

func TestNew_InvalidConfig(t *testing.T) {
	setLocalEnv(t)
	t.Setenv("DB_DRIVER", "oracle")

	a, err := New(context.Background())

	assert.Nil(t, a)
	assert.ErrorContains(t, err, "not supported")
}

func TestRun_StopsOnCancel(t *testing.T) {
	setLocalEnv(t)

	a, err := New(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not stop")
	}
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "")
	assert.Equal(t, "development", getEnvironment())

	t.Setenv("APP_ENV", "production")
	assert.Equal(t, "production", getEnvironment())
}
