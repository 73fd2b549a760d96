package clicmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gitlab.com/pagevar/extractor/sandbox"
	"gitlab.com/pagevar/pagevar"
)

// SandboxFlags for running a page in the embedded JS engine
func SandboxFlags() []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "local html file to load",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "url",
			Usage: "page to fetch, also the document's url when used with --file",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "csp",
			Usage: "content security policy, overrides the page's own",
			Value: "",
		},
		&cli.IntFlag{
			Name:  "scripttimeout",
			Usage: "seconds a single script may run",
			Value: 5,
		},
	}, commonFlags()...)
}

// Sandbox loads a page into the embedded page world and extracts variables from it
func Sandbox(ctx *cli.Context) error {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := signalContext(ctx.Context)
	defer cancel()
	runCtx = log.Logger.WithContext(runCtx)

	src, err := loadSource(runCtx, cfg)
	if err != nil {
		return err
	}

	history, err := openHistory(cfg.DataPath)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	pageCfg := sandbox.DefaultConfig()
	if cfg.URL != "" {
		pageCfg.URL = cfg.URL
	}
	pageCfg.ContentSecurityPolicy = cfg.ContentSecurityPolicy
	if seconds := ctx.Int("scripttimeout"); seconds > 0 {
		pageCfg.ScriptTimeout = time.Duration(seconds) * time.Second
	}

	page, err := sandbox.Open(runCtx, pageCfg, src)
	if err != nil {
		return err
	}
	defer page.Close()

	err = extractAll(runCtx, page, cfg, history, ctx.App.Writer)
	for _, entry := range page.Console() {
		log.Debug().Str("level", entry.Level).Time("time", entry.Time).Msg(entry.Message)
	}
	return err
}

// loadSource reads cfg.File, or fetches cfg.URL. A fetched page's
// Content-Security-Policy header is used unless one was configured.
func loadSource(ctx context.Context, cfg *pagevar.Config) (string, error) {
	if cfg.File != "" {
		data, err := os.ReadFile(cfg.File)
		if err != nil {
			return "", errors.Wrap(err, "failed to read page")
		}
		return string(data), nil
	}
	if cfg.URL == "" {
		return "", errors.New("a --file or --url is required")
	}

	client := resty.New().
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetHeader("User-Agent", "pagevar/0.1")

	resp, err := client.R().SetContext(ctx).Get(cfg.URL)
	if err != nil {
		return "", errors.Wrap(err, "request failed")
	}
	if resp.IsError() {
		return "", errors.Errorf("HTTP %d: %s (url: %s)", resp.StatusCode(), resp.Status(), cfg.URL)
	}
	if cfg.ContentSecurityPolicy == "" {
		cfg.ContentSecurityPolicy = resp.Header().Get("Content-Security-Policy")
	}
	return resp.String(), nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-c:
			log.Info().Msg("Ctrl-C Pressed, cancelling extractions")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(c)
	}()
	return ctx, cancel
}
