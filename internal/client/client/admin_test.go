package client

import (
	"context"
	"net"
	"testing"

	"github.com/dmitrijs2005/gophstream/internal/adminpb"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// fakeAdmin checks the token and echoes requests back.
type fakeAdmin struct {
	token string
}

func (f *fakeAdmin) authorize(ctx context.Context) error {
	md, _ := metadata.FromIncomingContext(ctx)
	v := md.Get(common.AccessTokenHeaderName)
	switch {
	case len(v) == 0:
		return status.Error(codes.Unauthenticated, "missing token")
	case v[0] == "expired":
		return status.Error(codes.Unauthenticated, "token expired")
	case v[0] != f.token:
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

func (f *fakeAdmin) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "OK"})
}

func (f *fakeAdmin) GetLicense(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := f.authorize(ctx); err != nil {
		return nil, err
	}
	if req.GetFields()["username"].GetStringValue() != "alice" {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return structpb.NewStruct(map[string]any{
		"username": "alice",
		"limit":    req.GetFields()["limit"].GetNumberValue(),
	})
}

func (f *fakeAdmin) RenewLicense(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := f.authorize(ctx); err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"username": req.GetFields()["username"].GetStringValue(), "views_remaining": 4})
}

func (f *fakeAdmin) EvictSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := f.authorize(ctx); err != nil {
		return nil, err
	}
	if req.GetFields()["session_id"].GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	return structpb.NewStruct(map[string]any{"evicted": true})
}

func (f *fakeAdmin) Stats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := f.authorize(ctx); err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"sessions": 2})
}

func dialFakeAdmin(t *testing.T, token string) *AdminClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	adminpb.RegisterAdminServiceServer(srv, &fakeAdmin{token: "good"})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	a, err := NewAdminClient("passthrough:///bufnet", token, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestAdminClient_Calls(t *testing.T) {
	a := dialFakeAdmin(t, "good")
	ctx := context.Background()

	require.NoError(t, a.Ping(ctx))

	lic, err := a.GetLicense(ctx, "alice", 5)
	require.NoError(t, err)
	assert.Equal(t, "alice", lic["username"])
	assert.Equal(t, 5.0, lic["limit"])

	_, err = a.GetLicense(ctx, "ghost", 5)
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	renewed, err := a.RenewLicense(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4.0, renewed["views_remaining"])

	evicted, err := a.EvictSession(ctx, "some-id")
	require.NoError(t, err)
	assert.True(t, evicted)

	_, err = a.EvictSession(ctx, "")
	assert.ErrorIs(t, err, common.ErrBadRequest)

	stats, err := a.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, stats["sessions"])
}

func TestAdminClient_TokenErrors(t *testing.T) {
	ctx := context.Background()

	_, err := dialFakeAdmin(t, "").Stats(ctx)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = dialFakeAdmin(t, "wrong").Stats(ctx)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = dialFakeAdmin(t, "expired").Stats(ctx)
	assert.ErrorIs(t, err, common.ErrTokenExpired)

	// Ping needs no token.
	assert.NoError(t, dialFakeAdmin(t, "").Ping(ctx))
}
