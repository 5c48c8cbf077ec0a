// Package quote decodes fixed-width B3 COTAHIST record lines into typed
// Records, retaining only market-record lines (type "01") for the fund
// ticker class code ("12").
package quote

import (
	"github.com/shopspring/decimal"

	"github.com/cotahist/fiiquotes/internal/xdate"
)

// Record is one decoded quote line: (date, ticker) identifies it uniquely.
type Record struct {
	Date    xdate.Date
	Ticker  string
	Open    decimal.Decimal
	High    decimal.Decimal
	Low     decimal.Decimal
	Close   decimal.Decimal
	Volume  decimal.Decimal
	Trades  int64
	Traded  int64 // traded quantity of shares/quotas
}
