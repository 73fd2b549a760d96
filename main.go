package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gitlab.com/pagevar/clicmds"
)

func main() {
	app := cli.NewApp()
	app.Name = "pagevar"
	app.Version = "0.1"
	app.Usage = "Read page global variables from an isolated world"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
			Value: false,
		},
	}
	app.Before = func(ctx *cli.Context) error {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		if ctx.Bool("debug") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:    "extract",
			Aliases: []string{"x"},
			Usage:   "extract variables from a page loaded in headless chromium",
			Action:  clicmds.Extract,
			Flags:   clicmds.ExtractFlags(),
		},
		{
			Name:    "sandbox",
			Aliases: []string{"s"},
			Usage:   "extract variables from a page run in the embedded js engine",
			Action:  clicmds.Sandbox,
			Flags:   clicmds.SandboxFlags(),
		},
		{
			Name:    "history",
			Aliases: []string{"h"},
			Usage:   "list recorded extractions",
			Action:  clicmds.History,
			Flags:   clicmds.HistoryFlags(),
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Msg("pagevar failed")
	}
}
