package grpc

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"finance-account-service/internal/usecase/user"
	apperrors "finance-account-service/pkg/errors"
	"finance-account-service/pkg/logger"
)

// Full method names of the user service.
const (
	ServiceName                 = "financas.v1.UserService"
	AuthenticateFullMethod      = "/" + ServiceName + "/Authenticate"
	ValidateEmailFullMethod     = "/" + ServiceName + "/ValidateEmail"
	RegisterUserFullMethod      = "/" + ServiceName + "/RegisterUser"
	authenticateMethodName      = "Authenticate"
	validateEmailMethodName     = "ValidateEmail"
	registerUserMethodName      = "RegisterUser"
	userServiceMetadataFilename = "financas/v1/user_service"
)

// UserServiceAPI is the server API for the user service.
// Requests and responses are google.protobuf.Struct messages.
type UserServiceAPI interface {
	Authenticate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ValidateEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RegisterUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// UserServiceServer implements the gRPC user service
type UserServiceServer struct {
	uc  user.Usecase
	log *zap.Logger
}

var _ UserServiceAPI = (*UserServiceServer)(nil)

// NewUserServiceServer creates a new gRPC user service server
func NewUserServiceServer(uc user.Usecase, log *zap.Logger) *UserServiceServer {
	return &UserServiceServer{uc: uc, log: log}
}

// RegisterUserServiceServer registers the user service on a gRPC server.
func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceAPI) {
	s.RegisterService(&UserServiceDesc, srv)
}

// Authenticate handles gRPC Authenticate request: {email, password} → {id, name, email}.
func (s *UserServiceServer) Authenticate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := stringField(req, "email")
	if email == "" {
		return nil, apperrors.NewValidationError("email", "is required")
	}

	u, err := s.uc.Authenticate(ctx, email, stringField(req, "password"))
	if err != nil {
		logger.WithContext(ctx, s.log).Info("gRPC Authenticate failed", zap.Error(err))
		return nil, err
	}

	return structpb.NewStruct(map[string]any{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
	})
}

// ValidateEmail handles gRPC ValidateEmail request: {email} → {email, available}.
func (s *UserServiceServer) ValidateEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := stringField(req, "email")
	if email == "" {
		return nil, apperrors.NewValidationError("email", "is required")
	}

	if err := s.uc.ValidateEmail(ctx, email); err != nil {
		logger.WithContext(ctx, s.log).Info("gRPC ValidateEmail failed", zap.Error(err))
		return nil, err
	}

	return structpb.NewStruct(map[string]any{
		"email":     email,
		"available": true,
	})
}

// RegisterUser handles gRPC RegisterUser request: {name, email, password} → {id}.
func (s *UserServiceServer) RegisterUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	resp, err := s.uc.RegisterUser(ctx, user.RegisterUserRequest{
		Name:     stringField(req, "name"),
		Email:    stringField(req, "email"),
		Password: stringField(req, "password"),
	})
	if err != nil {
		logger.WithContext(ctx, s.log).Info("gRPC RegisterUser failed", zap.Error(err))
		return nil, err
	}

	return structpb.NewStruct(map[string]any{
		"id": resp.ID,
	})
}

// stringField returns the string value of key, or "" when absent or not a string.
func stringField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func authenticateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceAPI).Authenticate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AuthenticateFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(UserServiceAPI).Authenticate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func validateEmailHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceAPI).ValidateEmail(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateEmailFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(UserServiceAPI).ValidateEmail(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func registerUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceAPI).RegisterUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RegisterUserFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(UserServiceAPI).RegisterUser(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// UserServiceDesc is the grpc.ServiceDesc for the user service.
var UserServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceAPI)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: authenticateMethodName, Handler: authenticateHandler},
		{MethodName: validateEmailMethodName, Handler: validateEmailHandler},
		{MethodName: registerUserMethodName, Handler: registerUserHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: userServiceMetadataFilename,
}

// UserServiceClient calls the user service over a client connection.
type UserServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewUserServiceClient creates a client for the user service.
func NewUserServiceClient(cc grpc.ClientConnInterface) *UserServiceClient {
	return &UserServiceClient{cc: cc}
}

// Authenticate invokes the Authenticate method.
func (c *UserServiceClient) Authenticate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, AuthenticateFullMethod, in, opts...)
}

// ValidateEmail invokes the ValidateEmail method.
func (c *UserServiceClient) ValidateEmail(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValidateEmailFullMethod, in, opts...)
}

// RegisterUser invokes the RegisterUser method.
func (c *UserServiceClient) RegisterUser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, RegisterUserFullMethod, in, opts...)
}

func (c *UserServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
