package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
)

type ingestCmd struct {
	configPath string
	dir        string
}

func (*ingestCmd) Name() string     { return "ingest" }
func (*ingestCmd) Synopsis() string { return "ingest one already-downloaded archive file, or a staging directory" }
func (*ingestCmd) Usage() string {
	return `ingest [-config <path>] <archive-file-path>
ingest [-config <path>] -dir <staging-dir>

  With an archive-file-path, runs the ten-step ingest algorithm against
  that local file: hash, ledger verdict, extraction, classification,
  parse, bulk insert, record. The archive's own base name is used as
  its ledger key.

  With -dir, discovers every archive in the directory the ledger has
  not yet recorded under its current name, or whose content has changed
  since it was recorded, and ingests each in ascending date order.
`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
	f.StringVar(&c.dir, "dir", "", "Staging directory to discover un-ingested archives in.")
}

func (c *ingestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.dir == "" && f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "ingest: exactly one archive path is required (or use -dir)")
		return subcommands.ExitUsageError
	}

	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	if c.dir != "" {
		results, err := e.ing.IngestDir(ctx, c.dir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		if len(results) == 0 {
			fmt.Println("no un-ingested staged archives")
		}
		for _, result := range results {
			if result.Skipped {
				fmt.Printf("%s unchanged, skipped\n", result.ArchiveName)
				continue
			}
			fmt.Printf("%s: verdict=%v inserted=%d parsed=%d skipped=%d malformed=%d\n",
				result.ArchiveName, result.Verdict, result.Inserted, result.Stats.Parsed, result.Stats.Skipped, result.Stats.Malformed)
		}
		return subcommands.ExitSuccess
	}

	archivePath := f.Arg(0)
	archiveName := filepath.Base(archivePath)
	result, err := e.ing.Ingest(ctx, archiveName, archivePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if result.Skipped {
		fmt.Printf("%s unchanged, skipped\n", archiveName)
		return subcommands.ExitSuccess
	}
	fmt.Printf("%s: verdict=%v inserted=%d parsed=%d skipped=%d malformed=%d\n",
		archiveName, result.Verdict, result.Inserted, result.Stats.Parsed, result.Stats.Skipped, result.Stats.Malformed)
	return subcommands.ExitSuccess
}
