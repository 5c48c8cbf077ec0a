package fetch

import (
	"fmt"
	"path/filepath"

	"github.com/cotahist/fiiquotes/internal/archive"
	"github.com/cotahist/fiiquotes/internal/calendar"
	"github.com/cotahist/fiiquotes/internal/xdate"
)

// LedgerSource is the subset of FileLedger the scheduler needs to find
// missing trading days, kept minimal so fetch doesn't need to know about
// the store package's ledger entry shape.
type LedgerSource interface {
	MaxProcessedDate() (max xdate.Date, ok bool, err error)
}

// Scheduler layers date scheduling on top of a Downloader: consulting a
// CalendarOracle before a single-day fetch, and computing the set of
// missing trading days for "Auto" mode, grounded on
// original_source/fii_utils/downloader.py's scheduling loop around its
// curl-based fetch.
type Scheduler struct {
	Downloader *Downloader
	Calendar   calendar.Oracle
	Ledger     LedgerSource
}

// NewScheduler constructs a Scheduler over an existing Downloader.
func NewScheduler(dl *Downloader, cal calendar.Oracle, ledger LedgerSource) *Scheduler {
	return &Scheduler{Downloader: dl, Calendar: cal, Ledger: ledger}
}

// DaySchedule is the outcome of scheduling one trading day for download.
type DaySchedule struct {
	Day         xdate.Date
	ArchiveName string
	Dest        string
	Skipped     bool // true when Day is not a trading day; Result is zero
	Result      Result
}

// FetchDay fetches the daily archive for day, first consulting Calendar; a
// non-trading day is skipped without making a network request.
func (s *Scheduler) FetchDay(day xdate.Date, destDir string) DaySchedule {
	name := archive.DailyName(day)
	sched := DaySchedule{Day: day, ArchiveName: name, Dest: filepath.Join(destDir, name)}
	if !s.Calendar.IsTradingDay(day) {
		sched.Skipped = true
		return sched
	}
	sched.Result = s.Downloader.Fetch(name, sched.Dest)
	return sched
}

// MissingTradingDays returns the trading days strictly after the ledger's
// max processed date, up to and including today. An empty ledger yields no
// days: Auto mode only fills gaps after at least one archive has been
// ingested explicitly.
func (s *Scheduler) MissingTradingDays(today xdate.Date) ([]xdate.Date, error) {
	max, ok, err := s.Ledger.MaxProcessedDate()
	if err != nil {
		return nil, fmt.Errorf("reading ledger max date: %w", err)
	}
	if !ok {
		return nil, nil
	}
	from := max.Add(1)
	if from.After(today) {
		return nil, nil
	}
	return s.Calendar.TradingDaysBetween(from, today), nil
}

// FetchMissing performs "Auto" mode: fetches the daily archive for every
// missing trading day up to today, in ascending order, observing the
// politeness delay between successive downloads.
func (s *Scheduler) FetchMissing(today xdate.Date, destDir string) ([]DaySchedule, error) {
	days, err := s.MissingTradingDays(today)
	if err != nil {
		return nil, err
	}
	out := make([]DaySchedule, 0, len(days))
	for i, d := range days {
		if i > 0 {
			s.Downloader.PoliteWait()
		}
		out = append(out, s.FetchDay(d, destDir))
	}
	return out, nil
}
