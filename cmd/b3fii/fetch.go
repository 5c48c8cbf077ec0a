package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/cotahist/fiiquotes/internal/fetch"
	"github.com/cotahist/fiiquotes/internal/xdate"
)

type fetchCmd struct {
	configPath string
	destDir    string
	day        string
	auto       bool
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download one exchange archive, or fill missing trading days" }
func (*fetchCmd) Usage() string {
	return `fetch [-config <path>] [-dest <dir>] <archive-name>
fetch [-config <path>] [-dest <dir>] -day <YYYY-MM-DD>
fetch [-config <path>] [-dest <dir>] -auto

  With an explicit archive-name, downloads it directly (e.g.
  COTAHIST_D18032025.ZIP), applying retry, certificate pinning, and
  post-download ZIP verification.

  With -day, downloads the daily archive for that date, first consulting
  the trading calendar; a non-trading day is skipped.

  With -auto, computes every trading day missing between the ledger's
  latest processed archive and today, and fetches each one in order,
  observing the politeness delay between downloads.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
	f.StringVar(&c.destDir, "dest", "", "Destination directory. Defaults to data_dir from config.")
	f.StringVar(&c.day, "day", "", "Fetch the daily archive for this date (YYYY-MM-DD), skipping non-trading days.")
	f.BoolVar(&c.auto, "auto", false, "Fetch every trading day missing since the ledger's latest processed archive.")
}

func (c *fetchCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	destDir := c.destDir
	if destDir == "" {
		destDir = e.cfg.DataDir
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	switch {
	case c.auto:
		return c.runAuto(e, destDir)
	case c.day != "":
		return c.runDay(e, destDir)
	default:
		return c.runExplicit(e, f, destDir)
	}
}

func (c *fetchCmd) runExplicit(e *env, f *flag.FlagSet, destDir string) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "fetch: exactly one archive name is required (or use -day/-auto)")
		return subcommands.ExitUsageError
	}
	archiveName := f.Arg(0)
	dest := filepath.Join(destDir, archiveName)
	return reportFetchResult(archiveName, dest, e.dl.Fetch(archiveName, dest))
}

func (c *fetchCmd) runDay(e *env, destDir string) subcommands.ExitStatus {
	day, err := xdate.Parse(c.day)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	sched := e.sched.FetchDay(day, destDir)
	if sched.Skipped {
		fmt.Printf("%s is not a trading day, skipped\n", day)
		return subcommands.ExitSuccess
	}
	return reportFetchResult(sched.ArchiveName, sched.Dest, sched.Result)
}

func (c *fetchCmd) runAuto(e *env, destDir string) subcommands.ExitStatus {
	scheduled, err := e.sched.FetchMissing(xdate.Today(), destDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if len(scheduled) == 0 {
		fmt.Println("no missing trading days")
		return subcommands.ExitSuccess
	}
	status := subcommands.ExitSuccess
	for _, sched := range scheduled {
		if sched.Skipped {
			fmt.Printf("%s is not a trading day, skipped\n", sched.Day)
			continue
		}
		if st := reportFetchResult(sched.ArchiveName, sched.Dest, sched.Result); st != subcommands.ExitSuccess {
			status = st
		}
	}
	return status
}

func reportFetchResult(archiveName, dest string, result fetch.Result) subcommands.ExitStatus {
	switch {
	case result.OK:
		fmt.Printf("fetched %s -> %s\n", archiveName, dest)
		return subcommands.ExitSuccess
	case result.PermanentFail != nil:
		fmt.Fprintf(os.Stderr, "%s: permanent failure: %v\n", archiveName, result.PermanentFail)
		return subcommands.ExitFailure
	default:
		fmt.Fprintf(os.Stderr, "%s: exhausted retries: %v\n", archiveName, result.TransientFail)
		return subcommands.ExitFailure
	}
}
