// Command purge deletes expired refresh and password reset tokens once and
// exits. It is meant to be run by an external scheduler such as cron.
package main

import (
	"context"
	"log"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
)

const purgeTimeout = 5 * time.Minute

func main() {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	data, err := app.PurgeExpiredTokens(ctx)
	if err != nil {
		log.Printf("purge failed: %v", err)
		return
	}
	log.Printf("purged %d refresh tokens and %d reset tokens", data.RefreshTokens, data.ResetTokens)
}
