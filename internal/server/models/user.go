// Package models defines the server-side records persisted by the
// repositories and passed between the service layers.
package models

import (
	"strings"
	"time"
)

// User is a registered account together with its lockout state.
//
// LoginAttempts counts consecutive failed logins while the account is
// active; it is reset to 0 when the account locks and after a successful
// login. LockUntil is only meaningful while IsLocked is true.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	IsActive      bool
	IsLocked      bool
	LockUntil     *time.Time
	LoginAttempts int
	LastLoginAt   *time.Time
	FirstName     string
	LastName      string
	AvatarURL     string
	PhoneNumber   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Email        *string
	PasswordHash *string
	IsActive     *bool
	LastLoginAt  *time.Time
	FirstName    *string
	LastName     *string
	AvatarURL    *string
	PhoneNumber  *string
}

// IsEmpty reports whether the update carries no changes.
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.PasswordHash == nil && u.IsActive == nil &&
		u.LastLoginAt == nil && u.FirstName == nil && u.LastName == nil &&
		u.AvatarURL == nil && u.PhoneNumber == nil
}

// Apply copies the set fields of upd onto u.
func (u *User) Apply(upd UserUpdate) {
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.LastLoginAt != nil {
		t := *upd.LastLoginAt
		u.LastLoginAt = &t
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	if upd.PhoneNumber != nil {
		u.PhoneNumber = *upd.PhoneNumber
	}
}

// LoginFailure is the outcome of recording one failed login.
// Attempts is the counter after the increment, or 0 if the failure locked
// the account.
type LoginFailure struct {
	Attempts  int
	Locked    bool
	LockUntil *time.Time
}

// NormalizeEmail lowercases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
