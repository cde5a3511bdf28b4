package services

import (
	"errors"
	"sort"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

const (
	msgInvalidEmail = "Please provide a valid email address"
	maxNameLength   = 100
	maxPhoneLength  = 20
)

// defaultPhoneRegion is used for numbers written without a country code.
const defaultPhoneRegion = "US"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error(msgInvalidEmail), is.Email.Error(msgInvalidEmail)),
		validation.Field(&r.Password, validation.Required.Error("Password is required")),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error(msgInvalidEmail), is.Email.Error(msgInvalidEmail)),
		validation.Field(&r.Password, validation.Required.Error("Password cannot be empty")),
	)
}

type LogoutRequest struct {
	UserID       string `json:"userId"`
	RefreshToken string `json:"refreshToken"`
}

func (r LogoutRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.RefreshToken, validation.Required.Error("Refresh token is required")),
	)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required.Error("Refresh token is required")),
	)
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

func (r PasswordResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error(msgInvalidEmail), is.Email.Error(msgInvalidEmail)),
	)
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required.Error("Reset token is required")),
		validation.Field(&r.NewPassword, validation.Required.Error("New password is required")),
	)
}

// ChangePasswordRequest is made by an authenticated user. KeepRefreshToken,
// when set, survives the revocation that follows the change so the calling
// session stays signed in.
type ChangePasswordRequest struct {
	UserID           string `json:"userId"`
	CurrentPassword  string `json:"currentPassword"`
	NewPassword      string `json:"newPassword"`
	ConfirmPassword  string `json:"confirmPassword"`
	KeepRefreshToken string `json:"keepRefreshToken,omitempty"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.CurrentPassword, validation.Required.Error("Current password is required")),
		validation.Field(&r.NewPassword, validation.Required.Error("New password is required")),
		validation.Field(&r.ConfirmPassword,
			validation.Required.Error("Password confirmation is required"),
			validation.By(equalsString(r.NewPassword, "Password confirmation does not match")),
		),
	)
}

// UpdateProfileRequest is a partial profile update; nil fields are kept.
type UpdateProfileRequest struct {
	UserID      string  `json:"userId"`
	Email       *string `json:"email,omitempty"`
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Email, is.Email.Error(msgInvalidEmail)),
		validation.Field(&r.FirstName, validation.RuneLength(0, maxNameLength).Error("First name cannot exceed 100 characters")),
		validation.Field(&r.LastName, validation.RuneLength(0, maxNameLength).Error("Last name cannot exceed 100 characters")),
		validation.Field(&r.AvatarURL, is.URL.Error("Please provide a valid URL for the avatar")),
		validation.Field(&r.PhoneNumber,
			validation.RuneLength(0, maxPhoneLength).Error("Phone number cannot exceed 20 characters"),
			validation.By(phoneNumber),
		),
	)
}

func equalsString(want, message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != want {
			return errors.New(message)
		}
		return nil
	}
}

func phoneNumber(value interface{}) error {
	v, isNil := validation.Indirect(value)
	s, _ := v.(string)
	if isNil || s == "" {
		return nil
	}
	num, err := phonenumbers.Parse(s, defaultPhoneRegion)
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return errors.New("Please provide a valid phone number")
	}
	return nil
}

// validationError wraps the violations of a request as a ValidationFailed
// domain error. The message is the first violation in field order.
func validationError(err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return common.NewError(common.ErrValidation, err.Error(), nil)
	}

	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	violations := make(map[string]string, len(errs))
	for _, f := range fields {
		violations[f] = errs[f].Error()
	}
	return common.NewError(common.ErrValidation, errs[fields[0]].Error(),
		map[string]any{"violations": violations})
}
