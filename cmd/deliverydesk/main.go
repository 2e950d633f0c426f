package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/cmjl/deliverydesk/internal/cli"
	"github.com/cmjl/deliverydesk/internal/envutil"
)

func main() {
	if err := envutil.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	envutil.ConfigureLogging(os.Stderr)

	if err := cli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr)
			cli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("deliverydesk")
	}
}
