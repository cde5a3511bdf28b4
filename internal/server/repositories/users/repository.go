// Package users declares the credential store: persistence of user records
// and the atomic counter and lock mutators used by the lockout machine.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository persists users. Lookups return common.ErrorNotFound for a
// missing user and Create returns common.ErrorAlreadyExists when the
// normalized email is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Update applies the non-nil fields of upd.
	Update(ctx context.Context, id string, upd models.UserUpdate) error

	// RecordFailedLogin atomically increments the failed-login counter of an
	// unlocked user. When the new count reaches threshold the user is locked
	// until lockUntil and the counter goes back to 0. A user that is already
	// locked yields common.ErrorAlreadyLocked.
	RecordFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (models.LoginFailure, error)

	// ResetLoginAttempts sets the failed-login counter to 0.
	ResetLoginAttempts(ctx context.Context, id string) error

	// Unlock clears the lock, its expiry and the counter.
	Unlock(ctx context.Context, id string) error
}
