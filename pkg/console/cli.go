package console

import (
	"context"
	"os"
	"time"

	"github.com/travigo/busdelay/pkg/config"
	"github.com/travigo/busdelay/pkg/model"
	"github.com/travigo/busdelay/pkg/remote"
	"github.com/travigo/busdelay/pkg/session"
	"github.com/urfave/cli/v2"
)

var configFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "path to the YAML config file",
}

func RegisterCLI() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "predict",
			Usage: "Predict the delay of one journey",
			Flags: []cli.Flag{
				configFlag,
				&cli.StringFlag{
					Name:     "service",
					Usage:    "service id, route number or label",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "stop",
					Usage:    "boarding stop name",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "direction",
					Value: string(model.DirectionForward),
					Usage: "forward (towards the terminus) or reverse (towards the origin)",
				},
				&cli.StringFlag{
					Name:  "date",
					Usage: "travel date as YYYY-MM-DD, defaults to today",
				},
				&cli.StringFlag{
					Name:     "time",
					Usage:    "departure time as HH:MM",
					Required: true,
				},
				&cli.DurationFlag{
					Name:  "timeout",
					Value: 2 * time.Minute,
					Usage: "give up after this long",
				},
				&cli.BoolFlag{
					Name:  "debug",
					Usage: "dump the final query state",
				},
			},
			Action: func(c *cli.Context) error {
				cfg, err := config.Load(c.String("config"))
				if err != nil {
					return err
				}

				options := predictOptions{
					Service: c.String("service"),
					Stop:    c.String("stop"),
					Debug:   c.Bool("debug"),
				}

				if options.Direction, err = model.ParseDirection(c.String("direction")); err != nil {
					return err
				}

				options.Date = model.DateOf(time.Now())
				if c.IsSet("date") {
					if options.Date, err = model.ParseDate(c.String("date")); err != nil {
						return err
					}
				}

				if options.Time, err = model.ParseTimeOfDay(c.String("time")); err != nil {
					return err
				}

				deps, err := session.NewDependencies(cfg)
				if err != nil {
					return err
				}

				ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
				defer cancel()

				_, err = runPredict(ctx, deps, options, os.Stdout)
				return err
			},
		},
		{
			Name:  "services",
			Usage: "List bus services",
			Flags: []cli.Flag{
				configFlag,
				&cli.StringFlag{
					Name:  "query",
					Usage: "search text, empty lists the default set",
				},
				&cli.StringFlag{
					Name:  "sort",
					Value: "server",
					Usage: "server or number",
				},
			},
			Action: func(c *cli.Context) error {
				cfg, err := config.Load(c.String("config"))
				if err != nil {
					return err
				}

				return runServices(c.Context, remote.NewClient(cfg.Remote), c.String("query"), c.String("sort"), os.Stdout)
			},
		},
	}
}
