package logger

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// RequestIDHeader is the header (and gRPC metadata key) carrying the request ID.
const RequestIDHeader = "x-request-id"

// RequestIDInterceptor is a gRPC interceptor that adds a request ID to the context.
// An incoming x-request-id is reused, otherwise a new one is generated.
func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(RequestIDHeader); len(ids) > 0 {
				requestID = ids[0]
			}
		}
		if requestID == "" {
			requestID = uuid.New().String()
		}

		return handler(ContextWithRequestID(ctx, requestID), req)
	}
}
