package clicmds

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gitlab.com/pagevar/extractor"
	"gitlab.com/pagevar/pagevar"
	"gitlab.com/pagevar/store"
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "var",
			Usage: "global variable to extract, repeat for more",
		},
		&cli.IntFlag{
			Name:  "timeout",
			Usage: "seconds to wait for each variable, 0 waits forever",
			Value: 10,
		},
		&cli.BoolFlag{
			Name:  "retain",
			Usage: "leave the injected script element in the document",
			Value: false,
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "config to use",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "datadir",
			Usage: "history directory, results are not recorded when empty",
			Value: "",
		},
	}
}

// LoadConfig decodes the --config TOML file if given, then applies flags that were set
// (or fill in values the file left empty)
func LoadConfig(ctx *cli.Context) (*pagevar.Config, error) {
	cfg := &pagevar.Config{}

	if path := ctx.String("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config")
		}

		if err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode config")
		}
	}

	overrideString(ctx, "url", &cfg.URL)
	overrideString(ctx, "file", &cfg.File)
	overrideString(ctx, "datadir", &cfg.DataPath)
	overrideString(ctx, "chrome", &cfg.ChromePath)
	overrideString(ctx, "world", &cfg.WorldName)
	overrideString(ctx, "csp", &cfg.ContentSecurityPolicy)

	if ctx.IsSet("var") || len(cfg.Variables) == 0 {
		cfg.Variables = ctx.StringSlice("var")
	}
	if ctx.IsSet("timeout") || (ctx.String("config") == "" && cfg.TimeoutSeconds == 0) {
		cfg.TimeoutSeconds = ctx.Int("timeout")
	}
	if ctx.IsSet("retain") {
		cfg.RetainScript = ctx.Bool("retain")
	}
	return cfg, nil
}

func overrideString(ctx *cli.Context, name string, field *string) {
	if ctx.IsSet(name) || *field == "" {
		*field = ctx.String(name)
	}
}

type result struct {
	Variable string      `json:"variable"`
	Present  bool        `json:"present"`
	Value    interface{} `json:"value"`
	State    string      `json:"state"`
	Error    string      `json:"error,omitempty"`
}

// extractAll runs one extraction per configured variable against page concurrently, writes
// one JSON line per variable to out in the order they were given and records them if
// history is not nil
func extractAll(ctx context.Context, page pagevar.Page, cfg *pagevar.Config, history *store.History, out io.Writer) error {
	if len(cfg.Variables) == 0 {
		return errors.New("no variables to extract, use --var")
	}

	opts := []extractor.Option{
		extractor.WithTimeout(cfg.Timeout()),
		extractor.RetainScript(cfg.RetainScript),
	}

	records := make([]*pagevar.Record, len(cfg.Variables))
	var wg sync.WaitGroup
	for i, name := range cfg.Variables {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			records[i] = extractOne(ctx, page, cfg.URL, name, opts)
		}(i, name)
	}
	wg.Wait()

	enc := json.NewEncoder(out)
	failed := 0
	for _, rec := range records {
		if rec.State != pagevar.RecordResolved {
			failed++
		}
		if history != nil {
			if err := history.Add(rec); err != nil {
				log.Error().Err(err).Str("variable", rec.Variable).Msg("failed to record extraction")
			}
		}

		r := &result{Variable: rec.Variable, Present: rec.Present, Value: rec.Value, State: rec.State.String(), Error: rec.Error}
		if err := enc.Encode(r); err != nil {
			r.Value = nil
			r.Error = "value not representable as JSON: " + err.Error()
			enc.Encode(r)
		}
	}

	if failed > 0 {
		return errors.Errorf("%d of %d extractions did not resolve", failed, len(records))
	}
	return nil
}

func extractOne(ctx context.Context, page pagevar.Page, url, name string, opts []extractor.Option) *pagevar.Record {
	x, err := extractor.New(ctx, page, name, opts...)
	if err != nil {
		now := time.Now()
		return &pagevar.Record{
			ID:        uuid.New().String(),
			URL:       url,
			Variable:  name,
			State:     pagevar.RecordFailed,
			Error:     err.Error(),
			Started:   now,
			Completed: now,
		}
	}

	if _, _, err := x.Value(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("variable", name).Msg("extraction did not resolve")
	}
	x.Close()
	return x.Record(url)
}

func openHistory(path string) (*store.History, error) {
	if path == "" {
		return nil, nil
	}
	history := store.NewHistory(path)
	if err := history.Init(); err != nil {
		return nil, err
	}
	return history, nil
}
