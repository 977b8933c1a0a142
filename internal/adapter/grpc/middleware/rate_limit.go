package middleware

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	WindowSeconds     int
	Enabled           bool
}

// MaxRequests returns the number of requests allowed per window.
func (c RateLimiterConfig) MaxRequests() int64 {
	return int64(c.RequestsPerSecond * float64(c.WindowSeconds))
}

// fixedWindow increments the counter for KEYS[1], starting its expiry on first use.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
end
return count
`)

// RateLimiter implements fixed-window rate limiting backed by Redis.
// It is shared by the gRPC and Gin transports.
type RateLimiter struct {
	client *redis.Client
	config RateLimiterConfig
	log    *zap.Logger
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client *redis.Client, config RateLimiterConfig, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
		log:    log,
	}
}

// Config returns the limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}

// Allow counts one request against key and reports whether it is within the limit.
// A disabled limiter, or a Redis failure, allows the request.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int64) {
	if rl == nil || !rl.config.Enabled || rl.client == nil {
		return true, 0
	}

	count, err := fixedWindow.Run(ctx, rl.client, []string{"ratelimit:" + key}, rl.config.WindowSeconds).Int64()
	if err != nil {
		rl.log.Warn("rate limiter redis error, allowing request", zap.String("key", key), zap.Error(err))
		return true, 0
	}

	if count > rl.config.MaxRequests() {
		rl.log.Warn("rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", count),
			zap.Float64("limit", rl.config.RequestsPerSecond),
		)
		return false, count
	}
	return true, count
}

// UnaryInterceptor returns a gRPC unary interceptor for rate limiting.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		key := fmt.Sprintf("%s:%s", info.FullMethod, clientIP(ctx))

		allowed, count := rl.Allow(ctx, key)
		if !allowed {
			return nil, status.Errorf(codes.ResourceExhausted,
				"rate limit exceeded: %d requests in %d seconds (limit: %.0f req/s)",
				count, rl.config.WindowSeconds, rl.config.RequestsPerSecond)
		}

		return handler(ctx, req)
	}
}

// clientIP extracts the client IP address from the gRPC context.
// Forwarding metadata is only honored from a loopback peer, which is how the
// in-process gateway connects; any other caller is keyed on its own address.
func clientIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}

	host := p.Addr.String()
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return host
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if xff := md.Get("x-forwarded-for"); len(xff) > 0 {
			if first := strings.TrimSpace(strings.Split(xff[0], ",")[0]); first != "" {
				return first
			}
		}
		if xri := md.Get("x-real-ip"); len(xri) > 0 && xri[0] != "" {
			return xri[0]
		}
	}

	return host
}
