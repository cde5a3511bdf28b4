package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-s", "-t", "-r", "-e", "-k", "-m", "-M", "-l", "-L", "-i", "-v", "-o"}

// parseFlags populates Config from command-line flags.
//
//	-a string   gRPC bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN, or "memory"
//	-s string   JWT HMAC secret key
//	-t int      access token validity, seconds
//	-r int      refresh token validity, days
//	-e int      reset token validity, milliseconds
//	-k int      bcrypt cost
//	-m int      minimum password length
//	-M int      maximum password length
//	-l int      failed logins before lock
//	-L int      lock duration, minutes
//	-i bool     count failures on deactivated accounts
//	-v string   log level
//	-o string   OTLP/HTTP trace endpoint
//
// Only the flags above are considered; os.Args is filtered with
// flagx.FilterArgs first. A parse error panics.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTTL := fs.Int64("t", int64(config.AccessTokenValidityDuration/time.Second), "access token validity (in seconds)")
	refreshTTL := fs.Int64("r", int64(config.RefreshTokenValidityDuration/(24*time.Hour)), "refresh token validity (in days)")
	resetTTL := fs.Int64("e", int64(config.ResetTokenValidityDuration/time.Millisecond), "reset token validity (in milliseconds)")

	fs.IntVar(&config.HashCost, "k", config.HashCost, "bcrypt cost")
	fs.IntVar(&config.MinPasswordLength, "m", config.MinPasswordLength, "minimum password length")
	fs.IntVar(&config.MaxPasswordLength, "M", config.MaxPasswordLength, "maximum password length")
	fs.IntVar(&config.MaxLoginAttempts, "l", config.MaxLoginAttempts, "failed logins before the account is locked")

	lockMinutes := fs.Int64("L", int64(config.LockDuration/time.Minute), "lock duration (in minutes)")

	fs.BoolVar(&config.CountInactiveFailures, "i", config.CountInactiveFailures, "count failed logins on deactivated accounts")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	fs.StringVar(&config.OTelEndpoint, "o", config.OTelEndpoint, "OTLP/HTTP trace endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTTL) * time.Second
	config.RefreshTokenValidityDuration = time.Duration(*refreshTTL) * 24 * time.Hour
	config.ResetTokenValidityDuration = time.Duration(*resetTTL) * time.Millisecond
	config.LockDuration = time.Duration(*lockMinutes) * time.Minute
}
