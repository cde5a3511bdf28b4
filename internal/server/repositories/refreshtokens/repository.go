// Package refreshtokens declares the token store contract for refresh
// tokens and provides PostgreSQL and in-memory implementations.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository stores refresh tokens. Revocation is monotonic: no method
// clears IsRevoked.
type Repository interface {
	// Create stores a new, unrevoked token.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find returns the token or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke marks a token revoked. It reports whether this call changed the
	// token; an absent or already revoked token is not an error.
	Revoke(ctx context.Context, token string) (bool, error)

	// RevokeAllForUser revokes every live token of userID except the one
	// equal to except (pass "" to revoke all) and returns how many changed.
	RevokeAllForUser(ctx context.Context, userID string, except string) (int64, error)

	// DeleteExpired removes tokens whose expiry is strictly before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
