// Package tokens is the token lifecycle manager: it issues and verifies
// access tokens, and issues, checks and revokes the stored refresh and
// password reset tokens.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// TokenPair is returned by register and login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}

// AccessGrant is returned by a refresh: a new access token only.
type AccessGrant struct {
	AccessToken string
	ExpiresIn   int64
}

type Config struct {
	SecretKey  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

type Manager struct {
	repos    repomanager.Repositories
	secret   []byte
	cfg      Config
	now      func() time.Time
	newToken func(size int) (string, error)
}

type Option func(*Manager)

// WithClock replaces time.Now for issuing and checking expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTokenSource replaces the random opaque token generator.
func WithTokenSource(fn func(size int) (string, error)) Option {
	return func(m *Manager) { m.newToken = fn }
}

func NewManager(cfg Config, repos repomanager.Repositories, opts ...Option) *Manager {
	m := &Manager{
		repos:    repos,
		secret:   []byte(cfg.SecretKey),
		cfg:      cfg,
		now:      time.Now,
		newToken: common.MakeRandHexString,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// With returns a copy of m that works on repos, typically the
// repositories of one transaction.
func (m *Manager) With(repos repomanager.Repositories) *Manager {
	c := *m
	c.repos = repos
	return &c
}

// ExpiresIn is the access token lifetime in whole seconds.
func (m *Manager) ExpiresIn() int64 {
	return int64(m.cfg.AccessTTL / time.Second)
}

// IssueAccessToken signs a JWT carrying sub and email.
func (m *Manager) IssueAccessToken(userID, email string) (string, error) {
	tok, err := auth.GenerateToken(userID, email, m.secret, m.now(), m.cfg.AccessTTL)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return tok, nil
}

// VerifyAccessToken checks signature and expiry without any store lookup.
func (m *Manager) VerifyAccessToken(token string) (*auth.Claims, error) {
	return auth.ParseToken(token, m.secret, m.now)
}

// IssueRefreshToken stores a new refresh token for userID.
func (m *Manager) IssueRefreshToken(ctx context.Context, userID string) (*models.RefreshToken, error) {
	value, err := m.newToken(common.RefreshTokenSize)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	rt := &models.RefreshToken{
		UserID:    userID,
		Token:     value,
		ExpiresAt: m.now().Add(m.cfg.RefreshTTL),
	}
	if err := m.repos.RefreshTokens.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return rt, nil
}

// IssueTokenPair mints an access token and a stored refresh token for u.
func (m *Manager) IssueTokenPair(ctx context.Context, u *models.User) (*TokenPair, error) {
	access, err := m.IssueAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := m.IssueRefreshToken(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh.Token, ExpiresIn: m.ExpiresIn()}, nil
}

// RotateOnRefresh exchanges a live refresh token for a new access token.
// The refresh token itself is left as it is.
func (m *Manager) RotateOnRefresh(ctx context.Context, token string) (*AccessGrant, error) {
	rt, err := m.repos.RefreshTokens.Find(ctx, token)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, invalidRefreshToken()
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if !rt.IsValidAt(m.now()) {
		return nil, invalidRefreshToken()
	}

	u, err := m.repos.Users.GetUserByID(ctx, rt.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.NewError(common.ErrUserNotFound, "User not found", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("find token owner: %w", err)
	}

	access, err := m.IssueAccessToken(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &AccessGrant{AccessToken: access, ExpiresIn: m.ExpiresIn()}, nil
}

func invalidRefreshToken() error {
	return common.NewError(common.ErrInvalidRefreshToken, "Invalid refresh token", nil)
}

// Revoke marks one refresh token revoked. Revoking an unknown or already
// revoked token succeeds; the bool reports whether anything changed.
func (m *Manager) Revoke(ctx context.Context, token string) (bool, error) {
	changed, err := m.repos.RefreshTokens.Revoke(ctx, token)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return changed, nil
}

// RevokeAllForUser revokes every refresh token of userID except exceptToken.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID, exceptToken string) (int64, error) {
	n, err := m.repos.RefreshTokens.RevokeAllForUser(ctx, userID, exceptToken)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return n, nil
}

// IssueResetToken stores a new single-use password reset token.
func (m *Manager) IssueResetToken(ctx context.Context, userID string) (*models.PasswordResetToken, error) {
	value, err := m.newToken(common.ResetTokenSize)
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	pr := &models.PasswordResetToken{
		UserID:    userID,
		Token:     value,
		ExpiresAt: m.now().Add(m.cfg.ResetTTL),
	}
	if err := m.repos.ResetTokens.Create(ctx, pr); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}
	return pr, nil
}

// ConsumeResetToken marks a valid reset token used and returns its owner.
// Absent, used and expired tokens all yield InvalidOrExpiredToken.
func (m *Manager) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	userID, err := m.repos.ResetTokens.MarkUsed(ctx, token, m.now())
	if errors.Is(err, common.ErrorNotFound) {
		return "", common.NewError(common.ErrInvalidOrExpiredToken, "Invalid or expired token", nil)
	}
	if err != nil {
		return "", fmt.Errorf("consume reset token: %w", err)
	}
	return userID, nil
}

// PurgeExpired deletes expired refresh and reset tokens.
func (m *Manager) PurgeExpired(ctx context.Context) (refresh int64, reset int64, err error) {
	now := m.now()
	if refresh, err = m.repos.RefreshTokens.DeleteExpired(ctx, now); err != nil {
		return 0, 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	if reset, err = m.repos.ResetTokens.DeleteExpired(ctx, now); err != nil {
		return refresh, 0, fmt.Errorf("purge reset tokens: %w", err)
	}
	return refresh, reset, nil
}
