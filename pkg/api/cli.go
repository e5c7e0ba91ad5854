package api

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/busdelay/pkg/config"
	"github.com/travigo/busdelay/pkg/session"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the session web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "listen target for the web server, overrides the config",
					},
					&cli.StringFlag{
						Name:  "config",
						Usage: "path to the YAML config file",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					if c.IsSet("listen") {
						cfg.API.Listen = c.String("listen")
					}

					deps, err := session.NewDependencies(cfg)
					if err != nil {
						return err
					}

					manager := session.NewManager(deps, cfg.API.SessionTTL.Duration)
					defer manager.Close()

					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()
					go manager.RunJanitor(ctx, janitorInterval(cfg.API.SessionTTL.Duration))

					log.Info().
						Str("listen", cfg.API.Listen).
						Str("remote", cfg.Remote.BaseURL).
						Msg("Starting web API")

					return SetupServer(cfg.API.Listen, manager)
				},
			},
		},
	}
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		return time.Second
	}

	return interval
}
