package gateway

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcadapter "finance-account-service/internal/adapter/grpc"
	"finance-account-service/pkg/logger"
)

type unaryCall func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

// RegisterUserServiceHandler maps the REST routes of the user service onto
// mux, forwarding each request over cc.
func RegisterUserServiceHandler(mux *runtime.ServeMux, cc grpc.ClientConnInterface) error {
	client := grpcadapter.NewUserServiceClient(cc)

	routes := []struct {
		method  string
		pattern string
		call    unaryCall
	}{
		{http.MethodPost, "/v1/users:authenticate", client.Authenticate},
		{http.MethodPost, "/v1/users:validateEmail", client.ValidateEmail},
		{http.MethodPost, "/v1/users", client.RegisterUser},
	}

	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, forward(mux, rt.call)); err != nil {
			return err
		}
	}
	return nil
}

func forward(mux *runtime.ServeMux, call unaryCall) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		ctx := r.Context()
		inbound, outbound := runtime.MarshalerForRequest(mux, r)

		var in structpb.Struct
		if err := inbound.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			runtime.HTTPError(ctx, mux, outbound, w, r, status.Errorf(codes.InvalidArgument, "invalid request body: %v", err))
			return
		}

		ctx = metadata.NewOutgoingContext(ctx, outgoingMetadata(r))

		var md runtime.ServerMetadata
		resp, err := call(ctx, &in, grpc.Header(&md.HeaderMD), grpc.Trailer(&md.TrailerMD))
		ctx = runtime.NewServerMetadataContext(ctx, md)
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, r, err)
			return
		}

		runtime.ForwardResponseMessage(ctx, mux, outbound, w, r, resp)
	}
}

// outgoingMetadata carries the caller address and request ID to the gRPC server.
func outgoingMetadata(r *http.Request) metadata.MD {
	md := metadata.MD{}

	client := r.Header.Get("X-Forwarded-For")
	if client == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			client = host
		} else {
			client = r.RemoteAddr
		}
	}
	if client != "" {
		md.Set("x-forwarded-for", client)
	}

	if id := r.Header.Get(logger.RequestIDHeader); id != "" {
		md.Set(logger.RequestIDHeader, id)
	}
	return md
}
