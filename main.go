package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"gitlab.com/scanhound/clicmds"
)

func main() {
	app := cli.NewApp()
	app.Name = "scanhound"
	app.Version = "0.1"
	app.Usage = "Spider a site, run passive checks and report what was found"
	app.Commands = []*cli.Command{
		{
			Name:    "scan",
			Aliases: []string{"s"},
			Usage:   "spider and check a target",
			Action:  clicmds.Scan,
			Flags:   clicmds.ScanFlags(),
		},
		{
			Name:  "asn",
			Usage: "ip range data tools",
			Subcommands: []*cli.Command{
				{
					Name:      "lookup",
					Usage:     "describe the network of each ip",
					ArgsUsage: "<ip>...",
					Action:    clicmds.ASNLookup,
					Flags:     clicmds.ASNLookupFlags(),
				},
				{
					Name:   "build",
					Usage:  "convert ip2asn data to the range format",
					Action: clicmds.ASNBuild,
					Flags:  clicmds.ASNBuildFlags(),
				},
			},
		},
		{
			Name:    "dbview",
			Aliases: []string{"db"},
			Usage:   "view checkpointed findings",
			Action:  clicmds.DBView,
			Flags:   clicmds.DBViewFlags(),
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
