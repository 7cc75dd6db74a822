// Package main provides the recofilms command line client.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "recofilms",
		Version: version,
		Usage:   "Browse the movie catalog and get recommendations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the configuration file",
				Sources: cli.EnvVars("RECOFILMS_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "backend base URL (overrides the configuration)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "write logs as JSON instead of console text",
			},
		},
		Commands: []*cli.Command{
			statusCommand(),
			initCommand(),
			searchCommand(),
			popularCommand(),
			discoverCommand(),
			topCommand(),
			actorCommand(),
			detailsCommand(),
			recommendCommand(),
			watchLaterCommand(),
			shellCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		report(os.Stderr, err)
		os.Exit(1)
	}
}
