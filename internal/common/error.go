// Package common defines shared constants, sentinel errors and helpers used
// across the authkeeper server. Callers should use errors.Is to match the
// sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorAlreadyLocked = errors.New("already locked")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed access token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Domain failure kinds. They are returned wrapped in *Error so callers get a
// message and details, but always match with errors.Is.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountDeactivated    = errors.New("account deactivated")
	ErrAccountLocked         = errors.New("account locked")
	ErrAccountStillLocked    = errors.New("account still locked")
	ErrWeakPassword          = errors.New("weak password")
	ErrPasswordUnchanged     = errors.New("password unchanged")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrInvalidRefreshToken   = errors.New("invalid refresh token")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUserNotFound          = errors.New("user not found")
	ErrValidation            = errors.New("validation failed")
)

// Error is a domain failure: a kind sentinel plus a caller-facing message and
// optional structured details (remaining attempts, failed rules, ...).
type Error struct {
	Kind    error
	Message string
	Details map[string]any
}

// NewError builds a domain error of the given kind.
func NewError(kind error, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

func (e *Error) Error() string {
	if e.Message == "" && e.Kind != nil {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// IsDomain reports whether err is (or wraps) one of the domain failure kinds.
func IsDomain(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return true
	}
	for _, kind := range domainKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

var domainKinds = []error{
	ErrInvalidCredentials,
	ErrAccountDeactivated,
	ErrAccountLocked,
	ErrAccountStillLocked,
	ErrWeakPassword,
	ErrPasswordUnchanged,
	ErrEmailAlreadyExists,
	ErrInvalidRefreshToken,
	ErrInvalidOrExpiredToken,
	ErrUserNotFound,
	ErrValidation,
}
