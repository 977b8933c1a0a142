package server

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"

	grpcadapter "finance-account-service/internal/adapter/grpc"
	"finance-account-service/internal/adapter/grpc/middleware"
	"finance-account-service/internal/usecase/user"
	"finance-account-service/pkg/logger"
)

// SetupGRPC creates the gRPC server with request ID and rate limit interceptors
func SetupGRPC(userUC user.Usecase, l *zap.Logger, rateLimiter *middleware.RateLimiter) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			rateLimiter.UnaryInterceptor(),
		),
	)
	grpcadapter.RegisterUserServiceServer(grpcServer, grpcadapter.NewUserServiceServer(userUC, l))

	return grpcServer
}
