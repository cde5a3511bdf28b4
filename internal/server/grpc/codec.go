package grpc

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// decode fills v, a request struct with json tags, from a Struct.
func decode(in *structpb.Struct, v any) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

// toStruct converts any JSON-marshalable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(m)
}

var statusCodes = map[services.Code]codes.Code{
	services.CodeValidationFailed:      codes.InvalidArgument,
	services.CodeWeakPassword:          codes.InvalidArgument,
	services.CodePasswordUnchanged:     codes.InvalidArgument,
	services.CodeInvalidCredentials:    codes.Unauthenticated,
	services.CodeInvalidRefreshToken:   codes.Unauthenticated,
	services.CodeInvalidOrExpiredToken: codes.Unauthenticated,
	services.CodeAccountDeactivated:    codes.PermissionDenied,
	services.CodeAccountLocked:         codes.PermissionDenied,
	services.CodeAccountStillLocked:    codes.PermissionDenied,
	services.CodeEmailAlreadyExists:    codes.AlreadyExists,
	services.CodeUserNotFound:          codes.NotFound,
}

// StatusCode maps an envelope code to a gRPC status code.
func StatusCode(c services.Code) codes.Code {
	if sc, ok := statusCodes[c]; ok {
		return sc
	}
	if c == services.CodeOK || c == services.CodeLogoutUnconfirmed {
		return codes.OK
	}
	return codes.Internal
}

// respond turns a service result into the RPC reply. A failed result
// becomes a status error with the envelope attached as a detail; an
// infrastructure error becomes codes.Internal without internals.
func respond[T any](res services.Result[T], err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}

	env, encErr := toStruct(res)
	if encErr != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	if res.OK() {
		return env, nil
	}

	st := status.New(StatusCode(res.Code), res.Message)
	if withEnv, detErr := st.WithDetails(env); detErr == nil {
		st = withEnv
	}
	return nil, st.Err()
}

// Envelope extracts the result envelope attached to a status error.
func Envelope(err error) (*structpb.Struct, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			return s, true
		}
	}
	return nil, false
}
