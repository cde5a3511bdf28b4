package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig mirrors Config with pointer fields so that only variables which
// are actually set override earlier layers. Durations use Go syntax ("15m").
type envConfig struct {
	EndpointAddrGRPC             *string        `env:"AUTHKEEPER_GRPC_ADDR"`
	DatabaseDSN                  *string        `env:"AUTHKEEPER_DATABASE_DSN"`
	SecretKey                    *string        `env:"AUTHKEEPER_SECRET_KEY"`
	AccessTokenValidityDuration  *time.Duration `env:"AUTHKEEPER_ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration *time.Duration `env:"AUTHKEEPER_REFRESH_TOKEN_TTL"`
	ResetTokenValidityDuration   *time.Duration `env:"AUTHKEEPER_RESET_TOKEN_TTL"`
	HashCost                     *int           `env:"AUTHKEEPER_HASH_COST"`
	MinPasswordLength            *int           `env:"AUTHKEEPER_MIN_PASSWORD_LENGTH"`
	MaxPasswordLength            *int           `env:"AUTHKEEPER_MAX_PASSWORD_LENGTH"`
	MaxLoginAttempts             *int           `env:"AUTHKEEPER_MAX_LOGIN_ATTEMPTS"`
	LockDuration                 *time.Duration `env:"AUTHKEEPER_LOCK_DURATION"`
	CountInactiveFailures        *bool          `env:"AUTHKEEPER_COUNT_INACTIVE_FAILURES"`
	LogLevel                     *string        `env:"AUTHKEEPER_LOG_LEVEL"`
	OTelEndpoint                 *string        `env:"AUTHKEEPER_OTEL_ENDPOINT"`
}

// parseEnv overlays AUTHKEEPER_* environment variables. A value that fails
// to parse panics, like a malformed JSON file.
func parseEnv(config *Config) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		panic(err)
	}

	override(&config.EndpointAddrGRPC, e.EndpointAddrGRPC)
	override(&config.DatabaseDSN, e.DatabaseDSN)
	override(&config.SecretKey, e.SecretKey)
	override(&config.AccessTokenValidityDuration, e.AccessTokenValidityDuration)
	override(&config.RefreshTokenValidityDuration, e.RefreshTokenValidityDuration)
	override(&config.ResetTokenValidityDuration, e.ResetTokenValidityDuration)
	override(&config.HashCost, e.HashCost)
	override(&config.MinPasswordLength, e.MinPasswordLength)
	override(&config.MaxPasswordLength, e.MaxPasswordLength)
	override(&config.MaxLoginAttempts, e.MaxLoginAttempts)
	override(&config.LockDuration, e.LockDuration)
	override(&config.CountInactiveFailures, e.CountInactiveFailures)
	override(&config.LogLevel, e.LogLevel)
	override(&config.OTelEndpoint, e.OTelEndpoint)
}

func override[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
