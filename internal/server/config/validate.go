package config

import (
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	validation "github.com/go-ozzo/ozzo-validation"
)

// bcrypt ignores input past 72 bytes.
const maxBcryptInput = 72

// Validate checks the bounds the server relies on at startup.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.EndpointAddrGRPC, validation.Required),
		validation.Field(&c.DatabaseDSN, validation.Required),
		validation.Field(&c.SecretKey, validation.Required),
		validation.Field(&c.AccessTokenValidityDuration, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.RefreshTokenValidityDuration, validation.Required, validation.Min(24*time.Hour)),
		validation.Field(&c.ResetTokenValidityDuration, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.HashCost, validation.Required, validation.Min(10), validation.Max(14)),
		validation.Field(&c.MinPasswordLength, validation.Required, validation.Min(6)),
		validation.Field(&c.MaxPasswordLength,
			validation.Required,
			validation.Min(8),
			validation.Min(c.MinPasswordLength),
			validation.Max(maxBcryptInput),
		),
		validation.Field(&c.MaxLoginAttempts, validation.Required, validation.Min(3)),
		validation.Field(&c.LockDuration, validation.Required, validation.Min(5*time.Minute)),
		validation.Field(&c.LogLevel, validation.By(validLogLevel)),
	)
}

func validLogLevel(value interface{}) error {
	s, _ := value.(string)
	_, err := logging.ParseLevel(s)
	return err
}
