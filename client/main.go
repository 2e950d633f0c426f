package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/cmjl/deliverydesk/internal/clientapp"
	"github.com/cmjl/deliverydesk/internal/envutil"
)

// Runs only the web client, for deployments that do not ship the CLI.
func main() {
	if err := envutil.LoadDotEnv(".env"); err != nil {
		log.Fatal().Err(err).Msg("load .env")
	}
	envutil.ConfigureLogging(os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := clientapp.Run(ctx, clientapp.DefaultConfigFromEnv()); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("client stopped")
	}
}
