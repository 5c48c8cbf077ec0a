package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/google/subcommands"

	"github.com/cotahist/fiiquotes/internal/adjust"
	"github.com/cotahist/fiiquotes/internal/money"
)

type adjustCmd struct {
	configPath string
	series     string
	currency   string
}

func (*adjustCmd) Name() string     { return "adjust" }
func (*adjustCmd) Synopsis() string { return "print a back-adjusted, merged quote series" }
func (*adjustCmd) Usage() string {
	return `adjust [-config <path>] [-currency <code>] -series <ticker1,ticker2,...>

  Merges the given ticker-rename history in order and back-adjusts every
  row for corporate actions recorded against any ticker in the series,
  labelling the output by the terminal (last) ticker.
`
}

func (c *adjustCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to the JSON config file.")
	f.StringVar(&c.series, "series", "", "Comma-separated ticker history, oldest first.")
	f.StringVar(&c.currency, "currency", "BRL", "ISO currency code for price formatting.")
}

func (c *adjustCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	tickers := splitNonEmpty(c.series, ",")
	if len(tickers) == 0 {
		fmt.Fprintln(os.Stderr, "adjust: -series is required")
		return subcommands.ExitUsageError
	}

	e, err := newEnv(c.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	engine := &adjust.Engine{Quotes: e.quotes, Events: e.events}
	rows, err := engine.Build(adjust.SeriesSpec{Tickers: tickers})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	terminal := adjust.SeriesSpec{Tickers: tickers}.TerminalTicker()
	fmt.Printf("# %s (%d rows)\n", terminal, len(rows))
	for _, r := range rows {
		adjClose := money.P(decimal.NewFromFloat(r.AdjClose), c.currency)
		fmt.Printf("%s  close=%s  adj_close=%s  adj_traded=%.0f  adj_volume=%.0f\n",
			r.Date, r.Close, adjClose, r.AdjTraded, r.AdjVolume)
	}
	return subcommands.ExitSuccess
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
