package models

import "time"

// PasswordResetToken is a single-use token mailed to the account owner.
// IsUsed never goes back to false.
type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	IsUsed    bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsValidAt reports whether the token can still be consumed at now.
func (t *PasswordResetToken) IsValidAt(now time.Time) bool {
	return !t.IsUsed && !now.After(t.ExpiresAt)
}
