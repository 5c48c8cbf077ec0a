package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/cotahist/fiiquotes/internal/store"
	"github.com/cotahist/fiiquotes/internal/xdate"
)

// eventsCmd is a container for corporate-action administrative subcommands.
// EventStore is owned by this administrative flow, not the ingest path —
// spec.md §4.5's ownership rule.
type eventsCmd struct{}

func (*eventsCmd) Name() string     { return "events" }
func (*eventsCmd) Synopsis() string { return "administer corporate actions (splits, reverse splits)" }
func (*eventsCmd) Usage() string {
	return `events <subcommand> [args]

Commands:
  list   - list corporate actions, optionally filtered by ticker.
  add    - insert or update one corporate action.
  remove - delete one corporate action by its key.
  import - bulk-import corporate actions from a JSON file.
`
}

func (*eventsCmd) SetFlags(f *flag.FlagSet) {}
func (*eventsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "events")
	commander.Register(&eventsListCmd{}, "")
	commander.Register(&eventsAddCmd{}, "")
	commander.Register(&eventsRemoveCmd{}, "")
	commander.Register(&eventsImportCmd{}, "")
	return commander.Execute(ctx, args...)
}

type eventsListCmd struct {
	configPath, ticker string
}

func (*eventsListCmd) Name() string     { return "list" }
func (*eventsListCmd) Synopsis() string { return "list corporate actions" }
func (*eventsListCmd) Usage() string    { return "events list [-config <path>] [-ticker <t>]\n" }
func (c *eventsListCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
	f.StringVar(&c.ticker, "ticker", "", "Filter by ticker. Empty means all.")
}

func (c *eventsListCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	actions, err := e.events.List(c.ticker, xdate.Date{}, xdate.Date{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, a := range actions {
		fmt.Printf("%-12s %s  %-14s factor=%v\n", a.Ticker, a.EffectiveDate, a.Kind, a.Factor)
	}
	return subcommands.ExitSuccess
}

type eventsAddCmd struct {
	configPath, ticker, kind, date string
	factor                         float64
}

func (*eventsAddCmd) Name() string     { return "add" }
func (*eventsAddCmd) Synopsis() string { return "insert or update one corporate action" }
func (*eventsAddCmd) Usage() string {
	return "events add -ticker <t> -kind split|reverse_split -date <YYYY-MM-DD> -factor <k>\n"
}
func (c *eventsAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
	f.StringVar(&c.ticker, "ticker", "", "Ticker symbol.")
	f.StringVar(&c.kind, "kind", "", "split or reverse_split.")
	f.StringVar(&c.date, "date", "", "Effective date, YYYY-MM-DD.")
	f.Float64Var(&c.factor, "factor", 0, "Positive multiplier k.")
}

func (c *eventsAddCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	date, err := xdate.Parse(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	action := store.CorporateAction{
		Ticker:        c.ticker,
		EffectiveDate: date,
		Kind:          store.ActionKind(c.kind),
		Factor:        c.factor,
	}
	if err := e.events.Insert(action); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("recorded %s %s %s factor=%v\n", c.ticker, c.date, c.kind, c.factor)
	return subcommands.ExitSuccess
}

type eventsRemoveCmd struct {
	configPath, ticker, kind, date string
}

func (*eventsRemoveCmd) Name() string     { return "remove" }
func (*eventsRemoveCmd) Synopsis() string { return "delete one corporate action by its key" }
func (*eventsRemoveCmd) Usage() string {
	return "events remove -ticker <t> -kind split|reverse_split -date <YYYY-MM-DD>\n"
}
func (c *eventsRemoveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
	f.StringVar(&c.ticker, "ticker", "", "Ticker symbol.")
	f.StringVar(&c.kind, "kind", "", "split or reverse_split.")
	f.StringVar(&c.date, "date", "", "Effective date, YYYY-MM-DD.")
}

func (c *eventsRemoveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	date, err := xdate.Parse(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	if err := e.events.Remove(c.ticker, date, store.ActionKind(c.kind)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("removed %s %s %s\n", c.ticker, c.date, c.kind)
	return subcommands.ExitSuccess
}

type eventsImportCmd struct {
	configPath string
}

func (*eventsImportCmd) Name() string     { return "import" }
func (*eventsImportCmd) Synopsis() string { return "bulk-import corporate actions from a JSON file" }
func (*eventsImportCmd) Usage() string {
	return `events import [-config <path>] <file.json>

  file.json is an array of {ticker, kind, effective_date, factor} objects.
  Unknown fields are rejected; duplicates with an identical factor are
  skipped; duplicates with a conflicting factor are reported and skipped.
`
}
func (c *eventsImportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
}

func (c *eventsImportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "events import: exactly one file path is required")
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	result, err := e.events.Import(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("inserted=%d skipped=%d rejected=%d\n", result.Inserted, result.Skipped, len(result.Rejected))
	for _, r := range result.Rejected {
		fmt.Println(" -", r)
	}
	return subcommands.ExitSuccess
}
