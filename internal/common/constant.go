package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the access
// token on inbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName carries "Bearer <token>" as an alternative to
// AccessTokenHeaderName.
const AuthorizationHeaderName = "authorization"

// RefreshTokenSize and ResetTokenSize are the number of random bytes behind
// the opaque hex token strings.
const (
	RefreshTokenSize = 32
	ResetTokenSize   = 32
)
