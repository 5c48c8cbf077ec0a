package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/cotahist/fiiquotes/internal/xdate"
)

type updateCmd struct {
	configPath string
	auto       bool
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "fetch then ingest one or more archives in order" }
func (*updateCmd) Usage() string {
	return `update [-config <path>] <archive-name> [<archive-name>...]
update [-config <path>] -auto

  Downloads and ingests each named archive in turn, observing the
  politeness delay between downloads. Archives should be given in
  chronological order of their date range so a partial run leaves the
  store at a consistent prefix of the eventual state.

  With -auto, fetches every trading day missing since the ledger's
  latest processed archive, then ingests every archive staged in
  data_dir that the ledger has not yet recorded under its current name,
  or whose content has changed since it was recorded (covering both the archives just fetched and any already sitting
  there from a prior run).
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
	f.BoolVar(&c.auto, "auto", false, "Fetch missing trading days and ingest every un-ingested staged archive.")
}

func (c *updateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.auto && f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "update: at least one archive name is required (or use -auto)")
		return subcommands.ExitUsageError
	}

	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.auto {
		return c.runAuto(ctx, e)
	}

	status := subcommands.ExitSuccess
	for i := 0; i < f.NArg(); i++ {
		archiveName := f.Arg(i)
		if i > 0 {
			e.dl.PoliteWait()
		}

		dest := filepath.Join(e.cfg.DataDir, archiveName)
		fetchResult := e.dl.Fetch(archiveName, dest)
		if !fetchResult.OK {
			if fetchResult.PermanentFail != nil {
				fmt.Fprintf(os.Stderr, "%s: fetch permanent failure: %v\n", archiveName, fetchResult.PermanentFail)
			} else {
				fmt.Fprintf(os.Stderr, "%s: fetch exhausted retries: %v\n", archiveName, fetchResult.TransientFail)
			}
			status = subcommands.ExitFailure
			continue
		}

		result, err := e.ing.Ingest(ctx, archiveName, dest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: ingest failed: %v\n", archiveName, err)
			status = subcommands.ExitFailure
			continue
		}
		if result.Skipped {
			fmt.Printf("%s unchanged, skipped\n", archiveName)
			continue
		}
		fmt.Printf("%s: verdict=%v inserted=%d\n", archiveName, result.Verdict, result.Inserted)
	}
	return status
}

func (c *updateCmd) runAuto(ctx context.Context, e *env) subcommands.ExitStatus {
	status := subcommands.ExitSuccess

	scheduled, err := e.sched.FetchMissing(xdate.Today(), e.cfg.DataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, sched := range scheduled {
		if sched.Skipped {
			fmt.Printf("%s is not a trading day, skipped\n", sched.Day)
			continue
		}
		if !sched.Result.OK {
			if sched.Result.PermanentFail != nil {
				fmt.Fprintf(os.Stderr, "%s: fetch permanent failure: %v\n", sched.ArchiveName, sched.Result.PermanentFail)
			} else {
				fmt.Fprintf(os.Stderr, "%s: fetch exhausted retries: %v\n", sched.ArchiveName, sched.Result.TransientFail)
			}
			status = subcommands.ExitFailure
		}
	}

	results, err := e.ing.IngestDir(ctx, e.cfg.DataDir)
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
		fmt.Printf("%s: verdict=%v inserted=%d\n", result.ArchiveName, result.Verdict, result.Inserted)
	}
	return status
}
