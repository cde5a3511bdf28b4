package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGetProfile(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, testEmail, testPassword)
	ctx := context.Background()

	res, err := f.users.GetProfile(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, CodeOK, res.Code)
	assert.Equal(t, reg.User.ID, res.Data.ID)
	assert.Equal(t, testEmail, res.Data.Email)

	missing, err := f.users.GetProfile(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, CodeUserNotFound, missing.Code)
	assert.ErrorIs(t, missing.Kind, common.ErrUserNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, testEmail, testPassword)

	res, err := f.users.UpdateProfile(context.Background(), UpdateProfileRequest{
		UserID:      reg.User.ID,
		Email:       strPtr(" New@X.com "),
		FirstName:   strPtr("Ada"),
		AvatarURL:   strPtr("https://cdn.example.com/a.png"),
		PhoneNumber: strPtr("+1 650 253 0000"),
	})
	require.NoError(t, err)
	require.Equal(t, CodeOK, res.Code, res.Message)
	assert.Equal(t, "new@x.com", res.Data.Email)
	assert.Equal(t, "Ada", res.Data.FirstName)
	assert.Empty(t, res.Data.LastName)
	assert.Equal(t, "https://cdn.example.com/a.png", res.Data.AvatarURL)
	assert.Equal(t, "+1 650 253 0000", res.Data.PhoneNumber)

	assert.Equal(t, CodeOK, f.login(t, "new@x.com", testPassword).Code)
	assert.Equal(t, CodeInvalidCredentials, f.login(t, testEmail, testPassword).Code)
}

func TestUpdateProfile_EmailOwnedByAnother(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, testEmail, testPassword)
	f.register(t, "b@x.com", testPassword)
	ctx := context.Background()

	res, err := f.users.UpdateProfile(ctx, UpdateProfileRequest{UserID: first.User.ID, Email: strPtr("B@x.com")})
	require.NoError(t, err)
	assert.Equal(t, CodeEmailAlreadyExists, res.Code)
	assert.Equal(t, "Email is already in use", res.Message)

	same, err := f.users.UpdateProfile(ctx, UpdateProfileRequest{UserID: first.User.ID, Email: strPtr(testEmail)})
	require.NoError(t, err)
	assert.Equal(t, CodeOK, same.Code, "keeping your own email is fine")
}

func TestUpdateProfile_Validation(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, testEmail, testPassword)

	tests := []struct {
		name      string
		req       UpdateProfileRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "long first name",
			req:       UpdateProfileRequest{FirstName: strPtr(strings.Repeat("a", 101))},
			wantField: "firstName",
			wantMsg:   "First name cannot exceed 100 characters",
		},
		{
			name:      "bad avatar",
			req:       UpdateProfileRequest{AvatarURL: strPtr("not a url")},
			wantField: "avatarUrl",
			wantMsg:   "Please provide a valid URL for the avatar",
		},
		{
			name:      "long phone",
			req:       UpdateProfileRequest{PhoneNumber: strPtr("+1 650 253 0000 000 000")},
			wantField: "phoneNumber",
			wantMsg:   "Phone number cannot exceed 20 characters",
		},
		{
			name:      "unparseable phone",
			req:       UpdateProfileRequest{PhoneNumber: strPtr("call me")},
			wantField: "phoneNumber",
			wantMsg:   "Please provide a valid phone number",
		},
		{
			name:      "bad email",
			req:       UpdateProfileRequest{Email: strPtr("nope")},
			wantField: "email",
			wantMsg:   "Please provide a valid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.UserID = reg.User.ID
			res, err := f.users.UpdateProfile(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, CodeValidationFailed, res.Code)
			assert.Equal(t, tt.wantMsg, res.Message)
			violations, ok := res.Details["violations"].(map[string]string)
			require.True(t, ok)
			assert.Contains(t, violations, tt.wantField)
		})
	}
}

func TestDeactivateAndReactivate(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, testEmail, testPassword)
	ctx := context.Background()

	res, err := f.users.DeactivateAccount(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Account has been deactivated", res.Message)

	ref, err := f.auth.Refresh(ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, CodeInvalidRefreshToken, ref.Code, "deactivation revokes sessions")

	profile, err := f.users.GetProfile(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.False(t, profile.Data.IsActive, "the record is kept")

	res, err = f.users.ReactivateAccount(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Account has been reactivated", res.Message)
	assert.Equal(t, CodeOK, f.login(t, testEmail, testPassword).Code)

	missing, err := f.users.DeactivateAccount(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, CodeUserNotFound, missing.Code)
}

func TestGetActivity(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, testEmail, testPassword)
	ctx := context.Background()

	res, err := f.users.GetActivity(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Data.LastLoginAt)

	f.clock.Advance(time.Minute)
	require.Equal(t, CodeOK, f.login(t, testEmail, testPassword).Code)

	res, err = f.users.GetActivity(ctx, reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Data.LastLoginAt)
	assert.True(t, res.Data.LastLoginAt.Equal(f.clock.Now()))
}

func TestUnlockAccount(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, testEmail, testPassword)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.login(t, testEmail, "wrong")
	}
	require.Equal(t, CodeAccountStillLocked, f.login(t, testEmail, testPassword).Code)

	res, err := f.users.UnlockAccount(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, CodeOK, res.Code)
	assert.Equal(t, CodeOK, f.login(t, testEmail, testPassword).Code)

	missing, err := f.users.UnlockAccount(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, CodeUserNotFound, missing.Code)
}
