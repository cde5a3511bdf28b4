package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/lockout"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgRegisterSuccess      = "Register success"
	msgLoginSuccess         = "Login success"
	msgLogoutSuccess        = "Logout success"
	msgLogoutUnconfirmed    = "Logout could not be confirmed"
	msgRefreshSuccess       = "Refresh token success"
	msgResetAccepted        = "Reset request accepted"
	msgResetGeneric         = "If this account exists, a reset link has been sent to your email"
	msgResetSuccess         = "Password reset success"
	msgPasswordChanged      = "Password changed successfully"
	msgPurgeSuccess         = "Expired tokens purged"
	msgInvalidCredentials   = "Invalid credentials"
	msgAccountDeactivated   = "Account is deactivated"
	msgEmailExists          = "User with this email already exists"
	msgCurrentPasswordWrong = "Current password is incorrect"
	msgPasswordUnchanged    = "New password must be different from current password"
	msgUserNotFound         = "User not found"
)

// AuthService orchestrates the credential store, the lockout machine, the
// password policy and the token manager into the authentication flows.
type AuthService struct {
	rm       repomanager.RepositoryManager
	tokens   *tokens.Manager
	policy   PasswordPolicy
	notifier ResetNotifier
	logger   logging.Logger
	tracer   trace.Tracer
	now      func() time.Time

	maxLoginAttempts      int
	lockDuration          time.Duration
	countInactiveFailures bool
}

// NewAuthService builds an AuthService from the repositories and the server
// config. Unless replaced by options, passwords are hashed with bcrypt at
// cfg.HashCost and reset tokens are written to the debug log.
func NewAuthService(m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger, opts ...Option) *AuthService {
	o := buildOptions(opts)

	policy := o.policy
	if policy == nil {
		policy = password.New(cfg.MinPasswordLength, cfg.MaxPasswordLength, cfg.HashCost)
	}
	notifier := o.notifier
	if notifier == nil {
		notifier = NewLogNotifier(l)
	}

	return &AuthService{
		rm:       m,
		tokens:   newTokenManager(cfg, m, o),
		policy:   policy,
		notifier: notifier,
		logger:   l.With("module", "auth_service"),
		tracer:   o.tracer,
		now:      o.now,

		maxLoginAttempts:      cfg.MaxLoginAttempts,
		lockDuration:          cfg.LockDuration,
		countInactiveFailures: cfg.CountInactiveFailures,
	}
}

func newTokenManager(cfg *config.Config, m repomanager.RepositoryManager, o options) *tokens.Manager {
	topts := []tokens.Option{tokens.WithClock(o.now)}
	if o.newToken != nil {
		topts = append(topts, tokens.WithTokenSource(o.newToken))
	}
	return tokens.NewManager(tokens.Config{
		SecretKey:  cfg.SecretKey,
		AccessTTL:  cfg.AccessTokenValidityDuration,
		RefreshTTL: cfg.RefreshTokenValidityDuration,
		ResetTTL:   cfg.ResetTokenValidityDuration,
	}, m.Repositories(), topts...)
}

// Tokens exposes the token manager, used by the transport to verify access
// tokens.
func (s *AuthService) Tokens() *tokens.Manager {
	return s.tokens
}

func (s *AuthService) lockout(repos repomanager.Repositories) *lockout.Machine {
	return lockout.New(repos.Users, s.maxLoginAttempts, s.lockDuration, lockout.WithClock(s.now))
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (Result[AuthData], error) {
	const op = "register"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	req.Email = models.NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return failure[AuthData](ctx, s.logger, span, op, validationError(err))
	}
	if err := s.policy.ValidateStrength(req.Password); err != nil {
		return failure[AuthData](ctx, s.logger, span, op, err)
	}

	email := req.Email

	// an early answer for a taken address saves the hash; the unique
	// constraint below still decides
	_, err := s.rm.Repositories().Users.GetUserByEmail(ctx, email)
	if err == nil {
		return failure[AuthData](ctx, s.logger, span, op, emailExists())
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return failure[AuthData](ctx, s.logger, span, op, fmt.Errorf("lookup user: %w", err))
	}

	hash, err := s.policy.Hash(req.Password)
	if err != nil {
		return failure[AuthData](ctx, s.logger, span, op, err)
	}

	var data AuthData
	err = s.rm.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		u, err := repos.Users.Create(ctx, &models.User{Email: email, PasswordHash: hash})
		if errors.Is(err, common.ErrorAlreadyExists) {
			return emailExists()
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		pair, err := s.tokens.With(repos).IssueTokenPair(ctx, u)
		if err != nil {
			return err
		}
		data = authData(pair, u)
		return nil
	})
	if err != nil {
		return failure[AuthData](ctx, s.logger, span, op, err)
	}

	s.logger.Info(ctx, "user registered", "user_id", data.User.ID)
	return success(msgRegisterSuccess, data), nil
}

// Login checks the credentials against the lockout state and, on success,
// resets the failure counter, stamps lastLoginAt and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (Result[AuthData], error) {
	const op = "login"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	req.Email = models.NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return failure[AuthData](ctx, s.logger, span, op, validationError(err))
	}

	repos := s.rm.Repositories()
	u, err := repos.Users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, common.ErrorNotFound) {
		s.policy.VerifyDummy(req.Password)
		return failure[AuthData](ctx, s.logger, span, op,
			common.NewError(common.ErrInvalidCredentials, msgInvalidCredentials, nil))
	}
	if err != nil {
		return failure[AuthData](ctx, s.logger, span, op, fmt.Errorf("lookup user: %w", err))
	}

	machine := s.lockout(repos)

	if !u.IsActive {
		if err := s.recordInactiveFailure(ctx, machine, u, req.Password); err != nil {
			return failure[AuthData](ctx, s.logger, span, op, err)
		}
		return failure[AuthData](ctx, s.logger, span, op,
			common.NewError(common.ErrAccountDeactivated, msgAccountDeactivated, nil))
	}

	if err := machine.Admit(ctx, u); err != nil {
		return failure[AuthData](ctx, s.logger, span, op, err)
	}

	if !s.policy.Verify(req.Password, u.PasswordHash) {
		err := machine.RecordFailure(ctx, u)
		if errors.Is(err, common.ErrAccountLocked) {
			s.logger.Warn(ctx, "account locked after failed logins", "user_id", u.ID)
		}
		return failure[AuthData](ctx, s.logger, span, op, err)
	}

	var data AuthData
	err = s.rm.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if err := s.lockout(repos).RecordSuccess(ctx, u); err != nil {
			return err
		}
		now := s.now()
		if err := repos.Users.Update(ctx, u.ID, models.UserUpdate{LastLoginAt: &now}); err != nil {
			return fmt.Errorf("update last login: %w", err)
		}
		u.LastLoginAt = &now

		pair, err := s.tokens.With(repos).IssueTokenPair(ctx, u)
		if err != nil {
			return err
		}
		data = authData(pair, u)
		return nil
	})
	if err != nil {
		return failure[AuthData](ctx, s.logger, span, op, err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", u.ID)
	return success(msgLoginSuccess, data), nil
}

// recordInactiveFailure counts a wrong password against a deactivated
// account when that is enabled. The caller answers AccountDeactivated
// either way.
func (s *AuthService) recordInactiveFailure(ctx context.Context, m *lockout.Machine, u *models.User, pw string) error {
	if !s.countInactiveFailures || u.IsLocked {
		return nil
	}
	if s.policy.Verify(pw, u.PasswordHash) {
		return nil
	}
	err := m.RecordFailure(ctx, u)
	if err != nil && !common.IsDomain(err) {
		return err
	}
	return nil
}

// Logout revokes one refresh token. A revocation that fails is logged and
// reported with CodeLogoutUnconfirmed, never as an error.
func (s *AuthService) Logout(ctx context.Context, req LogoutRequest) (Result[LogoutData], error) {
	const op = "logout"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	if err := req.Validate(); err != nil {
		return failure[LogoutData](ctx, s.logger, span, op, validationError(err))
	}

	revoked, err := s.tokens.Revoke(ctx, req.RefreshToken)
	if err != nil {
		s.logger.Warn(ctx, "logout revocation failed", "user_id", req.UserID, "error", err)
		span.RecordError(err)
		return Result[LogoutData]{
			Code:    CodeLogoutUnconfirmed,
			Message: msgLogoutUnconfirmed,
			Data:    LogoutData{Revoked: false},
		}, nil
	}

	s.logger.Info(ctx, "user logged out", "user_id", req.UserID, "revoked", revoked)
	return success(msgLogoutSuccess, LogoutData{Revoked: revoked}), nil
}

// Refresh exchanges a live refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (Result[RefreshData], error) {
	const op = "refresh"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	if err := req.Validate(); err != nil {
		return failure[RefreshData](ctx, s.logger, span, op, validationError(err))
	}

	grant, err := s.tokens.RotateOnRefresh(ctx, req.RefreshToken)
	if err != nil {
		return failure[RefreshData](ctx, s.logger, span, op, err)
	}
	return success(msgRefreshSuccess, RefreshData{AccessToken: grant.AccessToken, ExpiresIn: grant.ExpiresIn}), nil
}

// RequestPasswordReset issues a reset token for a known email and hands it
// to the notifier. Known and unknown emails get the same answer.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) (Result[ResetRequestData], error) {
	const op = "request_password_reset"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	req.Email = models.NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return failure[ResetRequestData](ctx, s.logger, span, op, validationError(err))
	}

	generic := success(msgResetAccepted, ResetRequestData{Message: msgResetGeneric})

	u, err := s.rm.Repositories().Users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, common.ErrorNotFound) {
		s.logger.Debug(ctx, "password reset requested for unknown email")
		return generic, nil
	}
	if err != nil {
		return failure[ResetRequestData](ctx, s.logger, span, op, fmt.Errorf("lookup user: %w", err))
	}

	rt, err := s.tokens.IssueResetToken(ctx, u.ID)
	if err != nil {
		return failure[ResetRequestData](ctx, s.logger, span, op, err)
	}

	if err := s.notifier.NotifyPasswordReset(ctx, u.Email, rt.Token, rt.ExpiresAt); err != nil {
		// the token stays valid; the caller may ask again
		s.logger.Error(ctx, "reset notification failed", "user_id", u.ID, "error", err)
		span.RecordError(err)
	}

	s.logger.Info(ctx, "password reset token issued", "user_id", u.ID)
	return generic, nil
}

// ResetPassword sets a new password using a reset token. The token is
// consumed, the password updated and every refresh token revoked in one
// transaction.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) (Result[Empty], error) {
	const op = "reset_password"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	if err := req.Validate(); err != nil {
		return failure[Empty](ctx, s.logger, span, op, validationError(err))
	}
	if err := s.policy.ValidateStrength(req.NewPassword); err != nil {
		return failure[Empty](ctx, s.logger, span, op, err)
	}
	hash, err := s.policy.Hash(req.NewPassword)
	if err != nil {
		return failure[Empty](ctx, s.logger, span, op, err)
	}

	var userID string
	err = s.rm.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		tm := s.tokens.With(repos)

		id, err := tm.ConsumeResetToken(ctx, req.Token)
		if err != nil {
			return err
		}
		if err := repos.Users.Update(ctx, id, models.UserUpdate{PasswordHash: &hash}); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.NewError(common.ErrUserNotFound, msgUserNotFound, nil)
			}
			return fmt.Errorf("update password: %w", err)
		}
		if _, err := tm.RevokeAllForUser(ctx, id, ""); err != nil {
			return err
		}
		userID = id
		return nil
	})
	if err != nil {
		return failure[Empty](ctx, s.logger, span, op, err)
	}

	s.logger.Info(ctx, "password reset", "user_id", userID)
	return success(msgResetSuccess, Empty{}), nil
}

// ChangePassword replaces the password of a signed-in user after checking
// the current one, then revokes the user's refresh tokens except
// req.KeepRefreshToken.
func (s *AuthService) ChangePassword(ctx context.Context, req ChangePasswordRequest) (Result[ChangePasswordData], error) {
	const op = "change_password"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	if err := req.Validate(); err != nil {
		return failure[ChangePasswordData](ctx, s.logger, span, op, validationError(err))
	}

	u, err := s.rm.Repositories().Users.GetUserByID(ctx, req.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		return failure[ChangePasswordData](ctx, s.logger, span, op,
			common.NewError(common.ErrUserNotFound, msgUserNotFound, nil))
	}
	if err != nil {
		return failure[ChangePasswordData](ctx, s.logger, span, op, fmt.Errorf("lookup user: %w", err))
	}

	if !s.policy.Verify(req.CurrentPassword, u.PasswordHash) {
		return failure[ChangePasswordData](ctx, s.logger, span, op,
			common.NewError(common.ErrInvalidCredentials, msgCurrentPasswordWrong, nil))
	}
	if req.NewPassword == req.CurrentPassword {
		return failure[ChangePasswordData](ctx, s.logger, span, op,
			common.NewError(common.ErrPasswordUnchanged, msgPasswordUnchanged, nil))
	}
	if err := s.policy.ValidateStrength(req.NewPassword); err != nil {
		return failure[ChangePasswordData](ctx, s.logger, span, op, err)
	}

	hash, err := s.policy.Hash(req.NewPassword)
	if err != nil {
		return failure[ChangePasswordData](ctx, s.logger, span, op, err)
	}

	var revoked int64
	err = s.rm.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if err := repos.Users.Update(ctx, u.ID, models.UserUpdate{PasswordHash: &hash}); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		n, err := s.tokens.With(repos).RevokeAllForUser(ctx, u.ID, req.KeepRefreshToken)
		if err != nil {
			return err
		}
		revoked = n
		return nil
	})
	if err != nil {
		return failure[ChangePasswordData](ctx, s.logger, span, op, err)
	}

	s.logger.Info(ctx, "password changed", "user_id", u.ID, "revoked_sessions", revoked)
	return success(msgPasswordChanged, ChangePasswordData{RevokedSessions: revoked}), nil
}

// PurgeExpiredTokens deletes expired refresh and reset tokens.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (Result[PurgeData], error) {
	const op = "purge_expired_tokens"
	ctx, span := startSpan(ctx, s.tracer, op)
	defer span.End()

	refresh, reset, err := s.tokens.PurgeExpired(ctx)
	if err != nil {
		return failure[PurgeData](ctx, s.logger, span, op, err)
	}

	s.logger.Info(ctx, "expired tokens purged", "refresh_tokens", refresh, "reset_tokens", reset)
	return success(msgPurgeSuccess, PurgeData{RefreshTokens: refresh, ResetTokens: reset}), nil
}

func emailExists() error {
	return common.NewError(common.ErrEmailAlreadyExists, msgEmailExists, nil)
}

func authData(p *tokens.TokenPair, u *models.User) AuthData {
	return AuthData{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.ExpiresIn,
		User:         NewUserView(u),
	}
}
