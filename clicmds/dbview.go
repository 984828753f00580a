package clicmds

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gitlab.com/scanhound/store"
)

func DBViewFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "datadir",
			Usage: "finding store directory",
			Value: "scanhoundtmp/findings",
		},
		&cli.StringFlag{
			Name:  "domain",
			Usage: "only print issues for this domain",
			Value: "",
		},
		&cli.BoolFlag{
			Name:  "dump",
			Usage: "dump full records",
			Value: false,
		},
	}
}

// DBView prints the issues checkpointed in a finding store
func DBView(ctx *cli.Context) error {
	findings := store.NewFindingStore(ctx.String("datadir"))
	if err := findings.Init(); err != nil {
		log.Error().Err(err).Msg("failed to init database for viewing")
		return err
	}
	defer func() {
		log.Info().Msg("Closing db & syncing, please wait")
		if err := findings.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	domains := []string{ctx.String("domain")}
	if domains[0] == "" {
		var err error
		if domains, err = findings.Domains(); err != nil {
			return err
		}
	}

	w := ctx.App.Writer
	for _, domain := range domains {
		records, err := findings.Issues(domain)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %d issues\n", domain, len(records))
		for _, rec := range records {
			if ctx.Bool("dump") {
				spew.Fdump(w, rec)
				continue
			}
			fmt.Fprintf(w, "\t[%s] %s %s\n", rec.Severity, rec.Vulnerability, rec.URL)
		}
	}
	return nil
}
