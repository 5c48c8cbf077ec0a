// Command b3fii is the thin CLI driver over the ingest pipeline and its
// supporting stores, grounded on pcs/main.go's subcommands.Commander
// wiring.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&fetchCmd{}, "pipeline")
	commander.Register(&ingestCmd{}, "pipeline")
	commander.Register(&updateCmd{}, "pipeline")
	commander.Register(&statsCmd{}, "query")
	commander.Register(&adjustCmd{}, "query")
	commander.Register(&ledgerCmd{}, "admin")
	commander.Register(&eventsCmd{}, "admin")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
