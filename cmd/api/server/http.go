package server

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"finance-account-service/internal/adapter/gateway"
)

// SetupHTTPGateway creates the REST gateway server forwarding to the gRPC server at grpcAddr.
// The returned connection must be closed once the server has stopped.
func SetupHTTPGateway(grpcAddr string, l *zap.Logger) (*http.Server, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gateway client: %w", err)
	}

	mux := runtime.NewServeMux()
	if err := gateway.RegisterUserServiceHandler(mux, conn); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to register gateway: %w", err)
	}

	l.Info("REST gateway configured", zap.String("grpc_target", grpcAddr))

	return &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}, conn, nil
}

// dialTarget turns a listener address into one a client can dial.
func dialTarget(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}
	if tcp.IP == nil || tcp.IP.IsUnspecified() {
		return net.JoinHostPort("localhost", fmt.Sprint(tcp.Port))
	}
	return tcp.String()
}
