package models

import "time"

// RefreshToken is a stored opaque refresh token. IsRevoked never goes back
// to false.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	IsRevoked bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsValidAt reports whether the token can still be used at now. A token is
// usable up to and including ExpiresAt.
func (t *RefreshToken) IsValidAt(now time.Time) bool {
	return !t.IsRevoked && !now.After(t.ExpiresAt)
}
