package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type statsCmd struct {
	configPath string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "print aggregate statistics over the quote store" }
func (*statsCmd) Usage() string {
	return `stats [-config <path>]

  Prints row count, distinct ticker count, and the stored date range.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
}

func (c *statsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	st, err := e.quotes.GetStats()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("rows=%d tickers=%d range=%s..%s\n", st.Rows, st.Tickers, st.DateMin, st.DateMax)

	tickers, err := e.quotes.ListTickers()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, t := range tickers {
		fmt.Println(" ", t)
	}
	return subcommands.ExitSuccess
}
