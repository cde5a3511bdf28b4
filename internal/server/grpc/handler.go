package grpc

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *Server) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req services.RegisterRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Registration request")
	res, err := s.auth.Register(ctx, req)
	return respond(res, err)
}

func (s *Server) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req services.LoginRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	res, err := s.auth.Login(ctx, req)
	return respond(res, err)
}

func (s *Server) Logout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req services.LogoutRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	req.UserID = userID

	res, err := s.auth.Logout(ctx, req)
	return respond(res, err)
}

func (s *Server) Refresh(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req services.RefreshRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	res, err := s.auth.Refresh(ctx, req)
	return respond(res, err)
}

func (s *Server) RequestPasswordReset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req services.PasswordResetRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	res, err := s.auth.RequestPasswordReset(ctx, req)
	return respond(res, err)
}

func (s *Server) ResetPassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req services.ResetPasswordRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	res, err := s.auth.ResetPassword(ctx, req)
	return respond(res, err)
}

func (s *Server) ChangePassword(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req services.ChangePasswordRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	req.UserID = userID

	res, err := s.auth.ChangePassword(ctx, req)
	return respond(res, err)
}

func (s *Server) GetProfile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.users.GetProfile(ctx, userID)
	return respond(res, err)
}

func (s *Server) UpdateProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req services.UpdateProfileRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	req.UserID = userID

	res, err := s.users.UpdateProfile(ctx, req)
	return respond(res, err)
}

func (s *Server) DeactivateAccount(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.users.DeactivateAccount(ctx, userID)
	return respond(res, err)
}

func (s *Server) ReactivateAccount(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.users.ReactivateAccount(ctx, userID)
	return respond(res, err)
}

func (s *Server) GetActivity(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.users.GetActivity(ctx, userID)
	return respond(res, err)
}

func currentUser(ctx context.Context) (string, error) {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return id, nil
}
