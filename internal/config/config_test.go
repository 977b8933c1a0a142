package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "50051", cfg.App.GRPCPort)
	assert.Equal(t, "8080", cfg.App.HTTPPort)
	assert.Equal(t, "8081", cfg.App.GinPort)
	assert.Equal(t, 10, cfg.App.ShutdownTimeoutSeconds)
	assert.Equal(t, 300, cfg.Redis.CacheTTL)
	assert.Equal(t, 10.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "finance-account-service", cfg.Logger.ServiceName)
	assert.Equal(t, 100, cfg.Logger.MaxSizeMB)
	assert.Equal(t, 3, cfg.Logger.MaxBackups)
	assert.Equal(t, 28, cfg.Logger.MaxAgeDays)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := "DB_DRIVER=sqlite\nDB_NAME=financas.db\nGRPC_PORT=6000\nREDIS_CACHE_TTL=60\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600))

	t.Setenv("GRPC_PORT", "7000")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "financas.db", cfg.DB.DSN())
	assert.Equal(t, "7000", cfg.App.GRPCPort)
	assert.Equal(t, 60, cfg.Redis.CacheTTL)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadConfig_ProductionLoggerDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.True(t, cfg.Logger.EnableSampling)
}

func TestDatabaseConfig_DSN_Postgres(t *testing.T) {
	db := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     "5432",
		User:     "app",
		Password: "secret",
		Name:     "minhasfinancas",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db user=app password=secret dbname=minhasfinancas port=5432 sslmode=disable", db.DSN())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DB:        DatabaseConfig{Driver: "postgres", Host: "localhost", Name: "minhasfinancas"},
			App:       AppConfig{GRPCPort: "50051", HTTPPort: "8080", GinPort: "8081", ShutdownTimeoutSeconds: 5},
			Redis:     RedisConfig{Enabled: true, Host: "localhost", Port: "6379", CacheTTL: 60},
			RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 5, WindowSeconds: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unsupported driver", mutate: func(c *Config) { c.DB.Driver = "mysql" }, wantErr: `DB_DRIVER "mysql" is not supported`},
		{name: "missing grpc port", mutate: func(c *Config) { c.App.GRPCPort = "" }, wantErr: "GRPC_PORT is required"},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.App.ShutdownTimeoutSeconds = 0 }, wantErr: "SHUTDOWN_TIMEOUT_SECONDS must be positive"},
		{name: "rate limit without redis", mutate: func(c *Config) { c.Redis.Enabled = false }, wantErr: "rate limiting requires Redis"},
		{name: "redis disabled without rate limit", mutate: func(c *Config) { c.Redis.Enabled = false; c.RateLimit.Enabled = false }},
		{name: "sqlite without host", mutate: func(c *Config) { c.DB.Driver = "sqlite"; c.DB.Host = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
