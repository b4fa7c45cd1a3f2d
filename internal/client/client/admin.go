package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophstream/internal/adminpb"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AdminClient talks to the admin gRPC service.
type AdminClient struct {
	conn        *grpc.ClientConn
	client      *adminpb.AdminServiceClient
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (a *AdminClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if a.accessToken != "" {
		ctx = withAccessToken(ctx, a.accessToken)
	}
	return mapAdminError(invoker(ctx, method, req, reply, cc, opts...))
}

// NewAdminClient dials addr. extra is appended to the dial options, which
// lets tests swap the dialer.
func NewAdminClient(addr, token string, extra ...grpc.DialOption) (*AdminClient, error) {
	a := &AdminClient{accessToken: token}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(a.accessTokenInterceptor),
	}, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	a.conn = conn
	a.client = adminpb.NewAdminServiceClient(conn)
	return a, nil
}

func (a *AdminClient) Close() error {
	return a.conn.Close()
}

func (a *AdminClient) Ping(ctx context.Context) error {
	_, err := a.client.Ping(ctx, &structpb.Struct{})
	return err
}

// GetLicense returns the license of username with up to limit recent events.
func (a *AdminClient) GetLicense(ctx context.Context, username string, limit int) (map[string]any, error) {
	return a.call(ctx, a.client.GetLicense, map[string]any{"username": username, "limit": limit})
}

func (a *AdminClient) RenewLicense(ctx context.Context, username string) (map[string]any, error) {
	return a.call(ctx, a.client.RenewLicense, map[string]any{"username": username})
}

// EvictSession reports whether the session existed.
func (a *AdminClient) EvictSession(ctx context.Context, sessionID string) (bool, error) {
	out, err := a.call(ctx, a.client.EvictSession, map[string]any{"session_id": sessionID})
	if err != nil {
		return false, err
	}
	evicted, _ := out["evicted"].(bool)
	return evicted, nil
}

func (a *AdminClient) Stats(ctx context.Context) (map[string]any, error) {
	return a.call(ctx, a.client.Stats, nil)
}

type adminCall func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

func (a *AdminClient) call(ctx context.Context, fn adminCall, in map[string]any) (map[string]any, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrBadRequest, err)
	}
	resp, err := fn(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

// mapAdminError turns well-known status codes into sentinels.
func mapAdminError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", common.ErrTransportUnavailable, st.Message())
	case codes.Unauthenticated:
		if st.Message() == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %s", common.ErrInvalidToken, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrUserNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrBadRequest, st.Message())
	default:
		return err
	}
}
