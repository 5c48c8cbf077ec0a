// Package calendar defines the trading-calendar collaborator the downloader
// and ingestion scheduler consult, and a minimal default implementation.
//
// The original CalendarManager delegates holiday logic to
// pandas_market_calendars' B3 ("BVMF") calendar; no corpus example carries
// an equivalent exchange-holiday-table dependency, so WeekdayOracle is
// intentionally a minimal, swappable stand-in (business day = Mon-Fri, no
// holiday table) rather than a silent gap — see DESIGN.md.
package calendar

import (
	"time"

	"github.com/cotahist/fiiquotes/internal/xdate"
)

// Oracle answers business-day queries.
type Oracle interface {
	IsTradingDay(d xdate.Date) bool
	TradingDaysBetween(from, to xdate.Date) []xdate.Date
}

// WeekdayOracle is the default Oracle: every Monday through Friday is a
// trading day, with no awareness of exchange holidays.
type WeekdayOracle struct{}

func (WeekdayOracle) IsTradingDay(d xdate.Date) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (o WeekdayOracle) TradingDaysBetween(from, to xdate.Date) []xdate.Date {
	var days []xdate.Date
	if from.After(to) {
		return days
	}
	for d := from; !d.After(to); d = d.Add(1) {
		if o.IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// PreviousTradingDay returns the latest trading day strictly before d.
func PreviousTradingDay(o Oracle, d xdate.Date) xdate.Date {
	prev := d.Add(-1)
	for !o.IsTradingDay(prev) {
		prev = prev.Add(-1)
	}
	return prev
}
