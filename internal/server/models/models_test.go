package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestUser_Apply(t *testing.T) {
	now := time.Now()
	name := "Bob"
	active := false

	u := User{FirstName: "Alice", LastName: "Smith", IsActive: true}
	u.Apply(UserUpdate{FirstName: &name, IsActive: &active, LastLoginAt: &now})

	assert.Equal(t, "Bob", u.FirstName)
	assert.Equal(t, "Smith", u.LastName)
	assert.False(t, u.IsActive)
	if assert.NotNil(t, u.LastLoginAt) {
		assert.True(t, u.LastLoginAt.Equal(now))
	}
}

func TestUserUpdate_IsEmpty(t *testing.T) {
	assert.True(t, UserUpdate{}.IsEmpty())
	phone := "+15551234567"
	assert.False(t, UserUpdate{PhoneNumber: &phone}.IsEmpty())
}

func TestTokenValidity(t *testing.T) {
	exp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	rt := RefreshToken{ExpiresAt: exp}
	assert.True(t, rt.IsValidAt(exp))
	assert.False(t, rt.IsValidAt(exp.Add(time.Nanosecond)))
	rt.IsRevoked = true
	assert.False(t, rt.IsValidAt(exp.Add(-time.Hour)))

	pr := PasswordResetToken{ExpiresAt: exp}
	assert.True(t, pr.IsValidAt(exp))
	assert.False(t, pr.IsValidAt(exp.Add(time.Millisecond)))
	pr.IsUsed = true
	assert.False(t, pr.IsValidAt(exp.Add(-time.Hour)))
}
