package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"

	"finance-account-service/cmd/api/di"
	"finance-account-service/cmd/api/server"
	ginrouter "finance-account-service/internal/adapter/gin/router"
	"finance-account-service/internal/config"
	"finance-account-service/pkg/logger"
)

// App represents the application
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Server    *server.Server
	Container *di.Container
}

// New loads configuration and builds every dependency of the application.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	container, err := di.NewContainer(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	var cache ginrouter.Pinger
	if container.RedisClient != nil {
		cache = container.RedisClient
	}

	srv := server.New(cfg, l, container.UserUC, container.RateLimiter, container.GinHandler, cache)

	return &App{
		Config:    cfg,
		Logger:    l,
		Server:    srv,
		Container: container,
	}, nil
}

// Run serves until ctx is canceled, then releases all resources.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.Logger.Error("panic recovered in application",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("application panic: %v", r)
		}
	}()

	a.Logger.Info("starting application",
		zap.String("service", a.Config.Logger.ServiceName),
		zap.String("version", a.Config.Logger.ServiceVersion),
		zap.String("environment", getEnvironment()),
		zap.String("grpc_port", a.Config.App.GRPCPort),
		zap.String("http_port", a.Config.App.HTTPPort),
		zap.String("gin_port", a.Config.App.GinPort),
	)

	serveErr := a.Server.Start(ctx)
	if serveErr != nil {
		a.Logger.Error("server stopped with error", zap.Error(serveErr))
	}

	return errors.Join(serveErr, a.close())
}

// close releases container resources and flushes the logger.
func (a *App) close() error {
	var errs []error

	if a.Container != nil {
		a.Logger.Info("closing container resources")
		if err := a.Container.Close(); err != nil {
			a.Logger.Error("failed to close container", zap.Error(err))
			errs = append(errs, fmt.Errorf("container close: %w", err))
		}
	}

	a.Logger.Info("application shutdown complete")

	// stdout and stderr cannot be synced on some platforms
	if err := a.Logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		errs = append(errs, fmt.Errorf("logger sync: %w", err))
	}

	return errors.Join(errs...)
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.NewWithConfig(logger.Config{
		Level:          cfg.Logger.Level,
		Format:         cfg.Logger.Format,
		OutputPath:     cfg.Logger.OutputPath,
		EnableSampling: cfg.Logger.EnableSampling,
		ServiceName:    cfg.Logger.ServiceName,
		ServiceVersion: cfg.Logger.ServiceVersion,
		Environment:    getEnvironment(),
		Rotation: logger.Rotation{
			MaxSizeMB:  cfg.Logger.MaxSizeMB,
			MaxBackups: cfg.Logger.MaxBackups,
			MaxAgeDays: cfg.Logger.MaxAgeDays,
		},
	})
}

func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}

func getEnvironment() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return "development"
}
