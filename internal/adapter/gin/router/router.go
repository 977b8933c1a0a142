package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"finance-account-service/internal/adapter/gin/handler"
	"finance-account-service/internal/adapter/gin/middleware"
	grpcmiddleware "finance-account-service/internal/adapter/grpc/middleware"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "finance-account-service-gin"

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupRouter configures and returns a Gin router with all routes and middleware.
// cache may be nil when Redis is disabled.
func SetupRouter(
	userHandler *handler.UserHandler,
	rateLimiter *grpcmiddleware.RateLimiter,
	cache Pinger,
	log *zap.Logger,
) *gin.Engine {
	router := gin.New()
	// clients reach this engine directly, so forwarding headers are not trusted
	_ = router.SetTrustedProxies(nil)

	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.RateLimiter(rateLimiter))

	router.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "healthy",
			"service": ServiceName,
		}
		if cache != nil {
			if err := cache.Ping(c.Request.Context()); err != nil {
				body["status"] = "degraded"
				body["redis"] = err.Error()
			} else {
				body["redis"] = "ok"
			}
		}
		c.JSON(http.StatusOK, body)
	})

	v1 := router.Group("/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("", userHandler.RegisterUser)
			users.POST("/authenticate", userHandler.Authenticate)
			users.GET("/email-availability", userHandler.EmailAvailability)
		}
	}

	return router
}
