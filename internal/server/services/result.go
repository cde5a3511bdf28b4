// Package services contains the server-side business logic: AuthService,
// which orchestrates registration, login and the token and password flows,
// and UserService, which manages the account itself.
//
// Every operation returns a Result envelope. Domain failures (bad
// credentials, locked account, weak password, ...) are carried in the
// envelope with a nil error; the error return is reserved for
// infrastructure failures, which are logged once here and passed up as
// they are.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Code is the machine-readable outcome of an operation.
type Code int

const (
	CodeOK                    Code = 1000
	CodeLogoutUnconfirmed     Code = 1001
	CodeValidationFailed      Code = 4000
	CodeInvalidCredentials    Code = 4001
	CodeAccountDeactivated    Code = 4002
	CodeAccountLocked         Code = 4003
	CodeAccountStillLocked    Code = 4004
	CodeWeakPassword          Code = 4005
	CodePasswordUnchanged     Code = 4006
	CodeEmailAlreadyExists    Code = 4007
	CodeInvalidRefreshToken   Code = 4008
	CodeInvalidOrExpiredToken Code = 4009
	CodeUserNotFound          Code = 4010
	CodeInternal              Code = 5000
)

var kindCodes = []struct {
	kind error
	code Code
}{
	{common.ErrValidation, CodeValidationFailed},
	{common.ErrInvalidCredentials, CodeInvalidCredentials},
	{common.ErrAccountDeactivated, CodeAccountDeactivated},
	{common.ErrAccountLocked, CodeAccountLocked},
	{common.ErrAccountStillLocked, CodeAccountStillLocked},
	{common.ErrWeakPassword, CodeWeakPassword},
	{common.ErrPasswordUnchanged, CodePasswordUnchanged},
	{common.ErrEmailAlreadyExists, CodeEmailAlreadyExists},
	{common.ErrInvalidRefreshToken, CodeInvalidRefreshToken},
	{common.ErrInvalidOrExpiredToken, CodeInvalidOrExpiredToken},
	{common.ErrUserNotFound, CodeUserNotFound},
}

// CodeFor returns the envelope code of a domain failure kind, or
// CodeInternal for anything else.
func CodeFor(err error) Code {
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			return kc.code
		}
	}
	return CodeInternal
}

// Result is the envelope returned by every service operation.
type Result[T any] struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Data    T              `json:"data"`
	Details map[string]any `json:"details,omitempty"`
	// Kind is the domain failure sentinel, nil on success.
	Kind error `json:"-"`
}

// OK reports whether the operation succeeded, including a logout whose
// revocation could not be confirmed.
func (r Result[T]) OK() bool {
	return r.Code == CodeOK || r.Code == CodeLogoutUnconfirmed
}

// Empty is the payload of operations that return nothing but a message.
type Empty struct{}

func success[T any](message string, data T) Result[T] {
	return Result[T]{Code: CodeOK, Message: message, Data: data}
}

const internalMessage = "Internal server error"

// failure turns err into an envelope. Domain errors become a failed
// Result with a nil error; anything else is logged, recorded on the span
// and returned unchanged.
func failure[T any](ctx context.Context, l logging.Logger, span trace.Span, op string, err error) (Result[T], error) {
	var de *common.Error
	if errors.As(err, &de) {
		l.Info(ctx, "request rejected", "op", op, "reason", de.Kind.Error())
		span.SetAttributes(attrOutcome(de.Kind.Error()))
		return Result[T]{
			Code:    CodeFor(de.Kind),
			Message: de.Message,
			Details: de.Details,
			Kind:    de.Kind,
		}, nil
	}

	l.Error(ctx, "request failed", "op", op, "error", err)
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	return Result[T]{Code: CodeInternal, Message: internalMessage}, err
}
