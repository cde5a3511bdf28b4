package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "authkeeper.v1.AuthService"

// Requests and responses are google.protobuf.Struct documents. A response
// is the result envelope {code, message, data, details}; a rejected call
// carries the same envelope as a status detail.
type AuthServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestPasswordReset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangePassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeactivateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReactivateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetActivity(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(AuthServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AuthServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AuthServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AuthServiceDesc describes the service for grpc.Server.RegisterService.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("Register", AuthServiceServer.Register),
		method("Login", AuthServiceServer.Login),
		method("Logout", AuthServiceServer.Logout),
		method("Refresh", AuthServiceServer.Refresh),
		method("RequestPasswordReset", AuthServiceServer.RequestPasswordReset),
		method("ResetPassword", AuthServiceServer.ResetPassword),
		method("ChangePassword", AuthServiceServer.ChangePassword),
		method("GetProfile", AuthServiceServer.GetProfile),
		method("UpdateProfile", AuthServiceServer.UpdateProfile),
		method("DeactivateAccount", AuthServiceServer.DeactivateAccount),
		method("ReactivateAccount", AuthServiceServer.ReactivateAccount),
		method("GetActivity", AuthServiceServer.GetActivity),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authkeeper/v1/auth.proto",
}

// FullMethod returns the gRPC path of a method of the service.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
