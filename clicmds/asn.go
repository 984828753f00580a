package clicmds

import (
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gitlab.com/scanhound/scanner/netinfo"
)

func ASNLookupFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Usage:    "ip range data file (plain or .gz)",
			Required: true,
		},
	}
}

// ASNLookup prints the network description of each ip argument
func ASNLookup(ctx *cli.Context) error {
	index := netinfo.New(ctx.String("data"))
	if ctx.NArg() == 0 {
		return fmt.Errorf("at least one ip address is required")
	}
	for _, ip := range ctx.Args().Slice() {
		desc, err := index.Lookup(ip)
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "%s\t%s\n", ip, desc)
	}
	return nil
}

func ASNBuildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "in",
			Usage:    "ip2asn tsv file to convert",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "out",
			Usage:    "range data file to write, gzipped when it ends in .gz",
			Required: true,
		},
	}
}

// ASNBuild converts an ip2asn file into the integer range format
func ASNBuild(ctx *cli.Context) error {
	in, err := os.Open(ctx.String("in"))
	if err != nil {
		return err
	}
	defer in.Close()

	outPath := ctx.String("out")
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	var n int
	if strings.HasSuffix(outPath, ".gz") {
		zw := gzip.NewWriter(out)
		if n, err = netinfo.Convert(in, zw); err != nil {
			return err
		}
		if err = zw.Close(); err != nil {
			return err
		}
	} else if n, err = netinfo.Convert(in, out); err != nil {
		return err
	}

	log.Info().Int("rows", n).Str("file", outPath).Msg("wrote range data")
	return nil
}
