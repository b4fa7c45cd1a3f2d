package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophstream/internal/adminpb"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const operatorKey ctxKey = "operator"

// OperatorFromContext returns the token subject stored by the interceptor.
func OperatorFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(operatorKey).(string)
	return v, ok
}

// accessTokenInterceptor requires a valid access_token on every method
// except Ping.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if info.FullMethod == adminpb.FullMethod(adminpb.MethodPing) {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	operator, err := auth.GetSubjectFromToken(accessToken, s.jwtSecret)
	if err != nil {
		s.logger.Warn(ctx, "Rejected admin token", "method", info.FullMethod, "error", err)
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	ctx = context.WithValue(ctx, operatorKey, operator)
	return handler(ctx, req)
}
