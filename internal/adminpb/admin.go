// Package adminpb describes the admin gRPC service. Requests and responses
// are google.protobuf.Struct values, so the service needs no generated
// message types.
package adminpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "gophstream.admin.AdminService"

const (
	MethodPing         = "Ping"
	MethodGetLicense   = "GetLicense"
	MethodRenewLicense = "RenewLicense"
	MethodEvictSession = "EvictSession"
	MethodStats        = "Stats"
)

// FullMethod returns the "/service/method" path used on the wire.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type AdminServiceServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetLicense expects {"username": string} and returns the license with
	// its most recent events.
	GetLicense(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenewLicense(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// EvictSession expects {"session_id": string}.
	EvictSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv AdminServiceServer) {
	s.RegisterService(&AdminServiceDesc, srv)
}

type unaryCall func(AdminServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AdminServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		next := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AdminServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, next)
	}
}

var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodPing, Handler: handler(MethodPing, AdminServiceServer.Ping)},
		{MethodName: MethodGetLicense, Handler: handler(MethodGetLicense, AdminServiceServer.GetLicense)},
		{MethodName: MethodRenewLicense, Handler: handler(MethodRenewLicense, AdminServiceServer.RenewLicense)},
		{MethodName: MethodEvictSession, Handler: handler(MethodEvictSession, AdminServiceServer.EvictSession)},
		{MethodName: MethodStats, Handler: handler(MethodStats, AdminServiceServer.Stats)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophstream/admin",
}

// AdminServiceClient calls the admin service over cc.
type AdminServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminServiceClient(cc grpc.ClientConnInterface) *AdminServiceClient {
	return &AdminServiceClient{cc: cc}
}

func (c *AdminServiceClient) call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminServiceClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodPing, in, opts...)
}

func (c *AdminServiceClient) GetLicense(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodGetLicense, in, opts...)
}

func (c *AdminServiceClient) RenewLicense(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodRenewLicense, in, opts...)
}

func (c *AdminServiceClient) EvictSession(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodEvictSession, in, opts...)
}

func (c *AdminServiceClient) Stats(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodStats, in, opts...)
}
