package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	DB        DatabaseConfig
	App       AppConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logger    LoggerConfig
}

// DatabaseConfig holds configuration for the database
type DatabaseConfig struct {
	Driver          string `mapstructure:"DB_DRIVER"` // postgres or sqlite
	Host            string `mapstructure:"DB_HOST"`
	Port            string `mapstructure:"DB_PORT"`
	User            string `mapstructure:"DB_USER"`
	Password        string `mapstructure:"DB_PASSWORD"`
	Name            string `mapstructure:"DB_NAME"` // database name, or file path for sqlite
	SSLMode         string `mapstructure:"DB_SSLMODE"`
	AutoMigrate     bool   `mapstructure:"DB_AUTO_MIGRATE"`
	MaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `mapstructure:"DB_CONN_MAX_LIFETIME"`  // seconds
	ConnMaxIdleTime int    `mapstructure:"DB_CONN_MAX_IDLE_TIME"` // seconds
}

// AppConfig holds configuration for the application servers
type AppConfig struct {
	GRPCPort               string `mapstructure:"GRPC_PORT"`
	HTTPPort               string `mapstructure:"HTTP_PORT"`
	GinPort                string `mapstructure:"GIN_PORT"`
	ShutdownTimeoutSeconds int    `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// RedisConfig holds configuration for the Redis cache
type RedisConfig struct {
	Enabled     bool   `mapstructure:"REDIS_ENABLED"`
	Host        string `mapstructure:"REDIS_HOST"`
	Port        string `mapstructure:"REDIS_PORT"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB"`
	MaxRetries  int    `mapstructure:"REDIS_MAX_RETRIES"`
	PoolSize    int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConn int    `mapstructure:"REDIS_MIN_IDLE_CONN"`
	CacheTTL    int    `mapstructure:"REDIS_CACHE_TTL"` // seconds
}

// RateLimitConfig holds configuration for request rate limiting
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RequestsPerSecond float64 `mapstructure:"RATE_LIMIT_RPS"`
	WindowSeconds     int     `mapstructure:"RATE_LIMIT_WINDOW_SECONDS"`
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level            string  `mapstructure:"LOG_LEVEL"`
	Format           string  `mapstructure:"LOG_FORMAT"`
	OutputPath       string  `mapstructure:"LOG_OUTPUT_PATH"`
	SlowQuerySeconds float64 `mapstructure:"LOG_SLOW_QUERY_SECONDS"`
	EnableSampling   bool    `mapstructure:"LOG_ENABLE_SAMPLING"`
	MaxSizeMB        int     `mapstructure:"LOG_MAX_SIZE_MB"`
	MaxBackups       int     `mapstructure:"LOG_MAX_BACKUPS"`
	MaxAgeDays       int     `mapstructure:"LOG_MAX_AGE_DAYS"`
	ServiceName      string  `mapstructure:"SERVICE_NAME"`
	ServiceVersion   string  `mapstructure:"SERVICE_VERSION"`
}

// LoadConfig reads configuration from app.env in path and from environment variables.
// Environment variables take precedence over the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	// environment must be bound before defaults, which depend on APP_ENV
	v.AutomaticEnv()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app") // Look for app.env
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if we have env vars
	}

	var config Config

	config.DB.Driver = v.GetString("DB_DRIVER")
	config.DB.Host = v.GetString("DB_HOST")
	config.DB.Port = v.GetString("DB_PORT")
	config.DB.User = v.GetString("DB_USER")
	config.DB.Password = v.GetString("DB_PASSWORD")
	config.DB.Name = v.GetString("DB_NAME")
	config.DB.SSLMode = v.GetString("DB_SSLMODE")
	config.DB.AutoMigrate = v.GetBool("DB_AUTO_MIGRATE")
	config.DB.MaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	config.DB.MaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	config.DB.ConnMaxLifetime = v.GetInt("DB_CONN_MAX_LIFETIME")
	config.DB.ConnMaxIdleTime = v.GetInt("DB_CONN_MAX_IDLE_TIME")

	config.App.GRPCPort = v.GetString("GRPC_PORT")
	config.App.HTTPPort = v.GetString("HTTP_PORT")
	config.App.GinPort = v.GetString("GIN_PORT")
	config.App.ShutdownTimeoutSeconds = v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")

	config.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	config.Redis.Host = v.GetString("REDIS_HOST")
	config.Redis.Port = v.GetString("REDIS_PORT")
	config.Redis.Password = v.GetString("REDIS_PASSWORD")
	config.Redis.DB = v.GetInt("REDIS_DB")
	config.Redis.MaxRetries = v.GetInt("REDIS_MAX_RETRIES")
	config.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	config.Redis.MinIdleConn = v.GetInt("REDIS_MIN_IDLE_CONN")
	config.Redis.CacheTTL = v.GetInt("REDIS_CACHE_TTL")

	config.RateLimit.Enabled = v.GetBool("RATE_LIMIT_ENABLED")
	config.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	config.RateLimit.WindowSeconds = v.GetInt("RATE_LIMIT_WINDOW_SECONDS")

	config.Logger.Level = v.GetString("LOG_LEVEL")
	config.Logger.Format = v.GetString("LOG_FORMAT")
	config.Logger.OutputPath = v.GetString("LOG_OUTPUT_PATH")
	config.Logger.SlowQuerySeconds = v.GetFloat64("LOG_SLOW_QUERY_SECONDS")
	config.Logger.EnableSampling = v.GetBool("LOG_ENABLE_SAMPLING")
	config.Logger.MaxSizeMB = v.GetInt("LOG_MAX_SIZE_MB")
	config.Logger.MaxBackups = v.GetInt("LOG_MAX_BACKUPS")
	config.Logger.MaxAgeDays = v.GetInt("LOG_MAX_AGE_DAYS")
	config.Logger.ServiceName = v.GetString("SERVICE_NAME")
	config.Logger.ServiceVersion = v.GetString("SERVICE_VERSION")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "minhasfinancas")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 60)

	v.SetDefault("GRPC_PORT", "50051")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("GIN_PORT", "8081")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 10)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONN", 2)
	v.SetDefault("REDIS_CACHE_TTL", 300)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	// Logger defaults
	if v.GetString("APP_ENV") == "production" {
		v.SetDefault("LOG_LEVEL", "info")
		v.SetDefault("LOG_FORMAT", "json")
		v.SetDefault("LOG_ENABLE_SAMPLING", true)
	} else {
		v.SetDefault("LOG_LEVEL", "debug")
		v.SetDefault("LOG_FORMAT", "console")
		v.SetDefault("LOG_ENABLE_SAMPLING", false)
	}
	v.SetDefault("LOG_OUTPUT_PATH", "stdout")
	v.SetDefault("LOG_SLOW_QUERY_SECONDS", 0.2)
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)
	v.SetDefault("SERVICE_NAME", "finance-account-service")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
}

// Validate checks the configuration for values the servers cannot start with.
func (c *Config) Validate() error {
	var problems []string

	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" {
			problems = append(problems, "DB_HOST is required")
		}
	case "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER %q is not supported", c.DB.Driver))
	}
	if c.DB.Name == "" {
		problems = append(problems, "DB_NAME is required")
	}

	if c.App.GRPCPort == "" {
		problems = append(problems, "GRPC_PORT is required")
	}
	if c.App.HTTPPort == "" {
		problems = append(problems, "HTTP_PORT is required")
	}
	if c.App.GinPort == "" {
		problems = append(problems, "GIN_PORT is required")
	}
	if c.App.ShutdownTimeoutSeconds <= 0 {
		problems = append(problems, "SHUTDOWN_TIMEOUT_SECONDS must be positive")
	}

	if c.Redis.Enabled {
		if c.Redis.Host == "" || c.Redis.Port == "" {
			problems = append(problems, "REDIS_HOST and REDIS_PORT are required when Redis is enabled")
		}
		if c.Redis.CacheTTL <= 0 {
			problems = append(problems, "REDIS_CACHE_TTL must be positive")
		}
	}

	if c.RateLimit.Enabled {
		if !c.Redis.Enabled {
			problems = append(problems, "rate limiting requires Redis")
		}
		if c.RateLimit.RequestsPerSecond <= 0 {
			problems = append(problems, "RATE_LIMIT_RPS must be positive")
		}
		if c.RateLimit.WindowSeconds <= 0 {
			problems = append(problems, "RATE_LIMIT_WINDOW_SECONDS must be positive")
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// DSN returns the data source name for the configured driver
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Name
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}
