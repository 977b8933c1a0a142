package middleware

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

// mockHandler is a simple handler that returns success
func mockHandler(ctx context.Context, req any) (any, error) {
	return "success", nil
}

func peerContext(t *testing.T, addr string) context.Context {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	require.NoError(t, err)
	return peer.NewContext(context.Background(), &peer.Peer{Addr: tcpAddr})
}

var authenticateInfo = &grpc.UnaryServerInfo{FullMethod: "/financas.v1.UserService/Authenticate"}

func TestRateLimiter_WithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 10, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 10; i++ {
		resp, err := interceptor(ctx, nil, authenticateInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_ExceedLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 5, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	ctx := peerContext(t, "127.0.0.1:12345")

	for i := 0; i < 5; i++ {
		_, err := interceptor(ctx, nil, authenticateInfo, mockHandler)
		require.NoError(t, err)
	}

	resp, err := interceptor(ctx, nil, authenticateInfo, mockHandler)
	assert.Nil(t, resp)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Contains(t, st.Message(), "rate limit exceeded")
}

func TestRateLimiter_WindowResets(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, WindowSeconds: 2, Enabled: true}, zaptest.NewLogger(t))
	ctx := context.Background()

	allowed, _ := rl.Allow(ctx, "k")
	assert.True(t, allowed)
	allowed, _ = rl.Allow(ctx, "k")
	assert.True(t, allowed)
	allowed, count := rl.Allow(ctx, "k")
	assert.False(t, allowed)
	assert.Equal(t, int64(3), count)

	mr.FastForward(3 * time.Second)

	allowed, count = rl.Allow(ctx, "k")
	assert.True(t, allowed)
	assert.Equal(t, int64(1), count)
}

func TestRateLimiter_SeparateClients(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	_, err := interceptor(peerContext(t, "10.0.0.1:1000"), nil, authenticateInfo, mockHandler)
	require.NoError(t, err)
	_, err = interceptor(peerContext(t, "10.0.0.2:1000"), nil, authenticateInfo, mockHandler)
	require.NoError(t, err)
	_, err = interceptor(peerContext(t, "10.0.0.1:1000"), nil, authenticateInfo, mockHandler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		peer string
		md   metadata.MD
		want string
	}{
		{name: "Gateway Forwarded For", peer: "127.0.0.1:1", md: metadata.Pairs("x-forwarded-for", "203.0.113.7"), want: "203.0.113.7"},
		{name: "Gateway Forwarded Chain", peer: "[::1]:1", md: metadata.Pairs("x-forwarded-for", "203.0.113.7, 10.0.0.9"), want: "203.0.113.7"},
		{name: "Gateway Real IP", peer: "127.0.0.1:1", md: metadata.Pairs("x-real-ip", "198.51.100.4"), want: "198.51.100.4"},
		{name: "Gateway Without Metadata", peer: "127.0.0.1:1", want: "127.0.0.1"},
		{name: "Remote Peer Ignores Forwarded For", peer: "10.0.0.1:5555", md: metadata.Pairs("x-forwarded-for", "203.0.113.7"), want: "10.0.0.1"},
		{name: "Remote Peer Ignores Real IP", peer: "10.0.0.1:5555", md: metadata.Pairs("x-real-ip", "198.51.100.4"), want: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := peerContext(t, tt.peer)
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}
			assert.Equal(t, tt.want, clientIP(ctx))
		})
	}

	assert.Equal(t, "unknown", clientIP(context.Background()))
}

func TestRateLimiter_RotatingForwardedForFromRemotePeer(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 2, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	spoofed := []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"}
	var err error
	for i, ip := range spoofed {
		// new source port on every call, as with fresh connections
		ctx := metadata.NewIncomingContext(peerContext(t, fmt.Sprintf("10.0.0.1:%d", 4000+i)), metadata.Pairs("x-forwarded-for", ip))
		_, err = interceptor(ctx, nil, authenticateInfo, mockHandler)
	}

	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, WindowSeconds: 1, Enabled: false}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()

	for i := 0; i < 5; i++ {
		_, err := interceptor(context.Background(), nil, authenticateInfo, mockHandler)
		require.NoError(t, err)
	}
	assert.Empty(t, mr.Keys())
}

func TestRateLimiter_FailOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl := NewRateLimiter(client, RateLimiterConfig{RequestsPerSecond: 1, WindowSeconds: 1, Enabled: true}, zaptest.NewLogger(t))
	interceptor := rl.UnaryInterceptor()
	mr.Close()

	for i := 0; i < 3; i++ {
		resp, err := interceptor(context.Background(), nil, authenticateInfo, mockHandler)
		require.NoError(t, err)
		assert.Equal(t, "success", resp)
	}
}

func TestRateLimiter_Nil(t *testing.T) {
	var rl *RateLimiter
	allowed, _ := rl.Allow(context.Background(), "k")
	assert.True(t, allowed)
}
