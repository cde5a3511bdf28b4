package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgProfileRetrieved  = "Profile retrieved"
	msgProfileUpdated    = "Profile updated"
	msgEmailInUse        = "Email is already in use"
	msgDeactivated       = "Account has been deactivated"
	msgReactivated       = "Account has been reactivated"
	msgActivityRetrieved = "Activity retrieved"
	msgUnlocked          = "Account has been unlocked"
)

// UserService manages an existing account: profile, activation and the
// administrative unlock.
type UserService struct {
	rm     repomanager.RepositoryManager
	tokens *tokens.Manager
	logger logging.Logger
	tracer trace.Tracer
}

func NewUserService(m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger, opts ...Option) *UserService {
	o := buildOptions(opts)
	return &UserService{
		rm:     m,
		tokens: newTokenManager(cfg, m, o),
		logger: l.With("module", "user_service"),
		tracer: o.tracer,
	}
}

func (s *UserService) load(ctx context.Context, repos repomanager.Repositories, userID string) (*models.User, error) {
	u, err := repos.Users.GetUserByID(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.NewError(common.ErrUserNotFound, msgUserNotFound, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (Result[UserView], error) {
	const op = "get_profile"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	u, err := s.load(ctx, s.rm.Repositories(), userID)
	if err != nil {
		return failure[UserView](ctx, s.logger, span, op, err)
	}
	return success(msgProfileRetrieved, NewUserView(u)), nil
}

// UpdateProfile applies the fields set in req. A new email must not belong
// to another account.
func (s *UserService) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (Result[UserView], error) {
	const op = "update_profile"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	if req.Email != nil {
		email := models.NormalizeEmail(*req.Email)
		req.Email = &email
	}
	if err := req.Validate(); err != nil {
		return failure[UserView](ctx, s.logger, span, op, validationError(err))
	}

	repos := s.rm.Repositories()
	if _, err := s.load(ctx, repos, req.UserID); err != nil {
		return failure[UserView](ctx, s.logger, span, op, err)
	}

	upd := models.UserUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		AvatarURL:   req.AvatarURL,
		PhoneNumber: req.PhoneNumber,
	}

	if req.Email != nil {
		other, err := repos.Users.GetUserByEmail(ctx, *req.Email)
		switch {
		case err == nil && other.ID != req.UserID:
			return failure[UserView](ctx, s.logger, span, op, emailInUse())
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return failure[UserView](ctx, s.logger, span, op, fmt.Errorf("lookup user: %w", err))
		}
		upd.Email = req.Email
	}

	if err := repos.Users.Update(ctx, req.UserID, upd); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return failure[UserView](ctx, s.logger, span, op, emailInUse())
		}
		return failure[UserView](ctx, s.logger, span, op, fmt.Errorf("update profile: %w", err))
	}

	u, err := s.load(ctx, repos, req.UserID)
	if err != nil {
		return failure[UserView](ctx, s.logger, span, op, err)
	}

	s.logger.Info(ctx, "profile updated", "user_id", u.ID)
	return success(msgProfileUpdated, NewUserView(u)), nil
}

// DeactivateAccount marks the account inactive and revokes all its refresh
// tokens. The record itself is kept.
func (s *UserService) DeactivateAccount(ctx context.Context, userID string) (Result[Empty], error) {
	const op = "deactivate_account"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	err := s.rm.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		u, err := s.load(ctx, repos, userID)
		if err != nil {
			return err
		}
		inactive := false
		if err := repos.Users.Update(ctx, u.ID, models.UserUpdate{IsActive: &inactive}); err != nil {
			return fmt.Errorf("deactivate user: %w", err)
		}
		_, err = s.tokens.With(repos).RevokeAllForUser(ctx, u.ID, "")
		return err
	})
	if err != nil {
		return failure[Empty](ctx, s.logger, span, op, err)
	}

	s.logger.Info(ctx, "account deactivated", "user_id", userID)
	return success(msgDeactivated, Empty{}), nil
}

func (s *UserService) ReactivateAccount(ctx context.Context, userID string) (Result[Empty], error) {
	const op = "reactivate_account"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	repos := s.rm.Repositories()
	u, err := s.load(ctx, repos, userID)
	if err != nil {
		return failure[Empty](ctx, s.logger, span, op, err)
	}
	active := true
	if err := repos.Users.Update(ctx, u.ID, models.UserUpdate{IsActive: &active}); err != nil {
		return failure[Empty](ctx, s.logger, span, op, fmt.Errorf("reactivate user: %w", err))
	}

	s.logger.Info(ctx, "account reactivated", "user_id", userID)
	return success(msgReactivated, Empty{}), nil
}

// GetActivity reports the last successful login.
func (s *UserService) GetActivity(ctx context.Context, userID string) (Result[ActivityData], error) {
	const op = "get_activity"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	u, err := s.load(ctx, s.rm.Repositories(), userID)
	if err != nil {
		return failure[ActivityData](ctx, s.logger, span, op, err)
	}
	return success(msgActivityRetrieved, ActivityData{LastLoginAt: u.LastLoginAt}), nil
}

// UnlockAccount clears a lock before it expires, including a lock with no
// expiry.
func (s *UserService) UnlockAccount(ctx context.Context, userID string) (Result[Empty], error) {
	const op = "unlock_account"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	err := s.rm.Repositories().Users.Unlock(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		err = common.NewError(common.ErrUserNotFound, msgUserNotFound, nil)
	}
	if err != nil {
		return failure[Empty](ctx, s.logger, span, op, err)
	}

	s.logger.Info(ctx, "account unlocked", "user_id", userID)
	return success(msgUnlocked, Empty{}), nil
}

func emailInUse() error {
	return common.NewError(common.ErrEmailAlreadyExists, msgEmailInUse, nil)
}
