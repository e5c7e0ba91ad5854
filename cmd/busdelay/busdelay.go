package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/busdelay/pkg/api"
	"github.com/travigo/busdelay/pkg/console"
	"github.com/travigo/busdelay/pkg/util"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	envErr := godotenv.Load()

	if util.GetEnvironmentVariable("BUSDELAY_LOG_FORMAT", "CONSOLE") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if util.GetEnvironmentVariable("BUSDELAY_DEBUG", "NO") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn().Err(envErr).Msg("Failed to load .env file")
	}

	app := &cli.App{
		Name:        "busdelay",
		Description: "Predicts how late a bus journey will be from historical delay data",

		Commands: append([]*cli.Command{
			api.RegisterCLI(),
		}, console.RegisterCLI()...),
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
