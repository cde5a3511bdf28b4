package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// ResetNotifier delivers a password reset token to the account owner.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// LogNotifier writes reset tokens to the debug log. It stands in for a
// mail sender in development.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l.With("module", "reset_notifier")}
}

func (n *LogNotifier) NotifyPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	n.logger.Debug(ctx, "password reset token issued", "email", email, "token", token, "expires_at", expiresAt)
	return nil
}
