package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/server/models"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultEventLimit = 10

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "OK"})
}

func (s *GRPCServer) GetLicense(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, err := stringField(req, "username")
	if err != nil {
		return nil, toStatus(err)
	}

	limit := defaultEventLimit
	if v, ok := req.GetFields()["limit"]; ok {
		limit = int(v.GetNumberValue())
	}

	lic, err := s.ledger.Get(ctx, username)
	if err != nil {
		return nil, toStatus(err)
	}
	events, err := s.ledger.Events(ctx, username, limit)
	if err != nil {
		s.logger.Error(ctx, "Loading events failed", "username", username, "error", err)
		return nil, toStatus(err)
	}

	out := s.licenseFields(lic)
	list := make([]any, 0, len(events))
	for _, ev := range events {
		list = append(list, map[string]any{
			"id":              float64(ev.ID),
			"kind":            string(ev.Kind),
			"views_remaining": float64(ev.ViewsRemaining),
			"created_at":      ev.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	out["events"] = list
	return structpb.NewStruct(out)
}

func (s *GRPCServer) RenewLicense(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	username, err := stringField(req, "username")
	if err != nil {
		return nil, toStatus(err)
	}

	lic, err := s.ledger.Renew(ctx, username)
	if err != nil {
		return nil, toStatus(err)
	}

	operator, _ := OperatorFromContext(ctx)
	s.logger.Info(ctx, "License renewed by operator", "username", username, "operator", operator)
	return structpb.NewStruct(s.licenseFields(lic))
}

func (s *GRPCServer) EvictSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw, err := stringField(req, "session_id")
	if err != nil {
		return nil, toStatus(err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "malformed session_id")
	}

	evicted := s.sessions.Delete(id)
	operator, _ := OperatorFromContext(ctx)
	s.logger.Info(ctx, "Session eviction", "session_id", id, "evicted", evicted, "operator", operator)
	return structpb.NewStruct(map[string]any{"evicted": evicted})
}

func (s *GRPCServer) Stats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"sessions":       float64(s.sessions.Len()),
		"uptime_seconds": s.now().Sub(s.started).Seconds(),
	})
}

func (s *GRPCServer) licenseFields(lic *models.License) map[string]any {
	return map[string]any{
		"username":        lic.Username,
		"views_remaining": float64(lic.ViewsRemaining),
		"expires_at":      lic.ExpiresAt.UTC().Format(time.RFC3339),
		"created_at":      lic.CreatedAt.UTC().Format(time.RFC3339),
		"valid":           lic.Valid(s.now()),
	}
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v := req.GetFields()[name].GetStringValue()
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", common.ErrBadRequest, name)
	}
	return v, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrBadRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrUserNotFound), errors.Is(err, common.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
