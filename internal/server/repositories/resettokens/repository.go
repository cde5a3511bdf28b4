// Package resettokens stores single-use password reset tokens.
package resettokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	Find(ctx context.Context, token string) (*models.PasswordResetToken, error)

	// MarkUsed consumes a token that is unused and not expired at now, and
	// returns its owner. The check and the mark are one atomic step; any
	// token that does not qualify yields common.ErrorNotFound.
	MarkUsed(ctx context.Context, token string, now time.Time) (string, error)

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
