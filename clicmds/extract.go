package clicmds

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gitlab.com/pagevar/extractor/browser"
)

// ExtractFlags for the chromium backed extract command
func ExtractFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "page to load",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "chrome",
			Usage: "chrome or chromium binary, found automatically when empty",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "world",
			Usage: "name of the isolated world the extraction listens from",
			Value: "pagevar",
		},
	}, commonFlags()...)
}

// Extract loads a page in headless chromium and extracts variables from it
func Extract(ctx *cli.Context) error {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.URL == "" {
		return errors.New("a --url is required")
	}

	runCtx, cancel := signalContext(ctx.Context)
	defer cancel()
	runCtx = log.Logger.WithContext(runCtx)

	history, err := openHistory(cfg.DataPath)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	pool := browser.NewPool(1, browser.NewLocalLeaser(cfg.ChromePath))
	if err := pool.Init(); err != nil {
		log.Error().Err(err).Msg("failed to start browser")
		return err
	}
	defer pool.Close(context.Background())

	tab, err := pool.Take(runCtx)
	if err != nil {
		return err
	}
	defer pool.Return(context.Background(), tab)

	log.Info().Str("url", cfg.URL).Msg("navigating")
	if err := tab.Navigate(runCtx, cfg.URL); err != nil {
		return errors.Wrap(err, "failed to navigate")
	}

	world, err := tab.IsolatedWorld(runCtx, cfg.WorldName)
	if err != nil {
		return err
	}
	defer world.Close()

	return extractAll(runCtx, world, cfg, history, ctx.App.Writer)
}
