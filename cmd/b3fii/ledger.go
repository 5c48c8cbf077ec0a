package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// ledgerCmd is a container for ledger administrative subcommands, grounded
// on amundi.go's pattern of a subcommand whose Execute hands off to a
// nested Commander.
type ledgerCmd struct{}

func (*ledgerCmd) Name() string     { return "ledger" }
func (*ledgerCmd) Synopsis() string { return "inspect or administer the file-processing ledger" }
func (*ledgerCmd) Usage() string {
	return `ledger <subcommand> [args]

Commands:
  list   - list every processed archive.
  forget - remove an archive from the ledger so it is re-ingested.
`
}

func (*ledgerCmd) SetFlags(f *flag.FlagSet) {}
func (*ledgerCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "ledger")
	commander.Register(&ledgerListCmd{}, "")
	commander.Register(&ledgerForgetCmd{}, "")
	return commander.Execute(ctx, args...)
}

type ledgerListCmd struct {
	configPath string
}

func (*ledgerListCmd) Name() string             { return "list" }
func (*ledgerListCmd) Synopsis() string         { return "list every processed archive" }
func (*ledgerListCmd) Usage() string            { return "ledger list [-config <path>]\n" }
func (c *ledgerListCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
}

func (c *ledgerListCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	entries, err := e.ledger.ListProcessed()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, entry := range entries {
		fmt.Printf("%-32s kind=%-8s rows=%-6d processed_at=%s\n",
			entry.ArchiveName, entry.Kind, entry.RowsAdded, entry.ProcessedAt.Format("2006-01-02T15:04:05Z"))
	}
	return subcommands.ExitSuccess
}

type ledgerForgetCmd struct {
	configPath string
}

func (*ledgerForgetCmd) Name() string     { return "forget" }
func (*ledgerForgetCmd) Synopsis() string { return "remove an archive from the ledger" }
func (*ledgerForgetCmd) Usage() string {
	return "ledger forget [-config <path>] <archive-name>\n"
}
func (c *ledgerForgetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
}

func (c *ledgerForgetCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "ledger forget: exactly one archive name is required")
		return subcommands.ExitUsageError
	}
	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	if err := e.ledger.Forget(f.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("forgot %s\n", f.Arg(0))
	return subcommands.ExitSuccess
}
