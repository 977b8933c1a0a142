package infrastructure

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"finance-account-service/internal/adapter/db/postgres"
	"finance-account-service/internal/config"
	"finance-account-service/pkg/logger"
)

// NewDatabase opens the configured database, applies pool settings and, when enabled, migrates the schema.
func NewDatabase(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(&cfg.DB)
	if err != nil {
		return nil, err
	}

	gormLogger := logger.NewGormLoggerWithConfig(l, cfg.Logger.SlowQuerySeconds, cfg.Logger.Level)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpen := cfg.DB.MaxOpenConns
	if cfg.DB.Driver == "sqlite" && cfg.DB.Name == ":memory:" {
		// every connection to :memory: is a separate database
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DB.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DB.ConnMaxIdleTime) * time.Second)

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		l.Info("database schema migrated")
	}

	l.Info("database connected successfully",
		zap.String("driver", cfg.DB.Driver),
		zap.Int("max_open_conns", maxOpen),
		zap.Int("max_idle_conns", cfg.DB.MaxIdleConns),
		zap.Int("conn_max_lifetime_seconds", cfg.DB.ConnMaxLifetime),
		zap.Int("conn_max_idle_time_seconds", cfg.DB.ConnMaxIdleTime),
	)

	return db, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		return pgdriver.Open(cfg.DSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// CloseDatabase closes the database connection
func CloseDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
