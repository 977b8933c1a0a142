package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	ginhandler "finance-account-service/internal/adapter/gin/handler"
	ginrouter "finance-account-service/internal/adapter/gin/router"
	"finance-account-service/internal/adapter/grpc/middleware"
	"finance-account-service/internal/config"
	"finance-account-service/internal/usecase/user"
)

// Server runs the gRPC server, its REST gateway and the Gin REST API side by side.
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	GRPC   *grpc.Server
	HTTP   *http.Server // set by Serve
	Gin    *http.Server

	gatewayConn *grpc.ClientConn
}

// New creates a new server instance. cache may be nil.
func New(
	cfg *config.Config,
	l *zap.Logger,
	userUC user.Usecase,
	rateLimiter *middleware.RateLimiter,
	ginHandler *ginhandler.UserHandler,
	cache ginrouter.Pinger,
) *Server {
	return &Server{
		Config: cfg,
		Logger: l,
		GRPC:   SetupGRPC(userUC, l, rateLimiter),
		Gin:    SetupGinServer(ginHandler, rateLimiter, cache, l),
	}
}

// Start listens on the configured ports and serves until ctx is canceled or a server fails.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}

	listeners := make([]net.Listener, 0, 3)
	closeAll := func() {
		for _, lis := range listeners {
			_ = lis.Close()
		}
	}

	for _, port := range []string{s.Config.App.GRPCPort, s.Config.App.HTTPPort, s.Config.App.GinPort} {
		lis, err := lc.Listen(ctx, "tcp", ":"+port)
		if err != nil {
			closeAll()
			return fmt.Errorf("failed to listen on :%s: %w", port, err)
		}
		listeners = append(listeners, lis)
	}

	return s.Serve(ctx, listeners[0], listeners[1], listeners[2])
}

// Serve runs all servers on the given listeners. When ctx is canceled, or any server
// fails, every server is shut down within the configured timeout.
func (s *Server) Serve(ctx context.Context, grpcLis, httpLis, ginLis net.Listener) error {
	httpServer, conn, err := SetupHTTPGateway(dialTarget(grpcLis.Addr()), s.Logger)
	if err != nil {
		_ = grpcLis.Close()
		_ = httpLis.Close()
		_ = ginLis.Close()
		return err
	}
	s.HTTP = httpServer
	s.gatewayConn = conn

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", grpcLis.Addr().String()))
		if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("REST gateway running", zap.String("address", httpLis.Addr().String()))
		if err := s.HTTP.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP gateway: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("Gin REST API running", zap.String("address", ginLis.Addr().String()))
		if err := s.Gin.Serve(ginLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gin server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := time.Duration(s.Config.App.ShutdownTimeoutSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops all servers, forcing the gRPC server closed if ctx expires first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("shutting down servers")

	var errs []error

	if s.HTTP != nil {
		if err := s.HTTP.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
		}
	}

	if s.Gin != nil {
		if err := s.Gin.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("gin shutdown: %w", err))
		}
	}

	if s.gatewayConn != nil {
		if err := s.gatewayConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("gateway connection close: %w", err))
		}
	}

	if s.GRPC != nil {
		stopped := make(chan struct{})
		go func() {
			s.GRPC.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.Logger.Warn("gRPC graceful stop timed out, forcing stop")
			s.GRPC.Stop()
		}
	}

	return errors.Join(errs...)
}
