package services

import (
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// UserView is the public form of a user record: no hash, no lockout state.
type UserView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName,omitempty"`
	LastName    string     `json:"lastName,omitempty"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func NewUserView(u *models.User) UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		AvatarURL:   u.AvatarURL,
		PhoneNumber: u.PhoneNumber,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// AuthData is returned by Register and Login.
type AuthData struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresIn    int64    `json:"expiresIn"`
	User         UserView `json:"user"`
}

type RefreshData struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type LogoutData struct {
	Revoked bool `json:"revoked"`
}

type ChangePasswordData struct {
	RevokedSessions int64 `json:"revokedSessions"`
}

type ActivityData struct {
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

type PurgeData struct {
	RefreshTokens int64 `json:"refreshTokens"`
	ResetTokens   int64 `json:"resetTokens"`
}

type ResetRequestData struct {
	Message string `json:"message"`
}
