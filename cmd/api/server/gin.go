package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	ginhandler "finance-account-service/internal/adapter/gin/handler"
	ginrouter "finance-account-service/internal/adapter/gin/router"
	grpcmiddleware "finance-account-service/internal/adapter/grpc/middleware"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(
	handler *ginhandler.UserHandler,
	rateLimiter *grpcmiddleware.RateLimiter,
	cache ginrouter.Pinger,
	l *zap.Logger,
) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := ginrouter.SetupRouter(handler, rateLimiter, cache, l)

	return &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
