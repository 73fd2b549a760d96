package clicmds

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gitlab.com/pagevar/store"
)

// HistoryFlags for listing recorded extractions
func HistoryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "datadir",
			Usage: "history directory",
			Value: "",
		},
		&cli.StringFlag{
			Name:  "var",
			Usage: "only show this variable",
			Value: "",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "max records to show",
			Value: 100,
		},
	}
}

// History prints recorded extractions, newest first
func History(ctx *cli.Context) error {
	if ctx.String("datadir") == "" {
		return errors.New("a --datadir is required")
	}

	history := store.NewHistory(ctx.String("datadir"))
	if err := history.Init(); err != nil {
		log.Error().Err(err).Msg("failed to init database for viewing")
		return err
	}
	defer history.Close()

	records, err := history.Find(ctx.String("var"), ctx.Int("limit"))
	if err != nil {
		return err
	}

	out := ctx.App.Writer
	fmt.Fprintf(out, "Had %d records\n", len(records))
	for _, rec := range records {
		detail := rec.Error
		if detail == "" {
			data, err := json.Marshal(rec.Value)
			if err != nil {
				data = []byte(err.Error())
			}
			detail = string(data)
			if !rec.Present {
				detail = "undefined"
			}
		}
		fmt.Fprintf(out, "%s %s [%s] %s %s\n", rec.Started.Format(time.RFC3339), rec.Variable, rec.State, rec.URL, detail)
	}
	return nil
}
