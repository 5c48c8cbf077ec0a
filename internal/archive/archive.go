// Package archive classifies COTAHIST archive filenames into their kind
// (daily/monthly/yearly) and the date range of quotes they carry, mirroring
// the B3 naming convention.
package archive

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/cotahist/fiiquotes/internal/xdate"
)

// Kind identifies the granularity of an archive.
type Kind int

const (
	Daily Kind = iota
	Monthly
	Yearly
)

func (k Kind) String() string {
	switch k {
	case Daily:
		return "daily"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return "unknown"
	}
}

var (
	yearlyPattern  = regexp.MustCompile(`^COTAHIST_A(\d{4})\.(TXT|ZIP)$`)
	dailyPattern   = regexp.MustCompile(`^COTAHIST_D(\d{2})(\d{2})(\d{4})\.(TXT|ZIP)$`)
	monthlyPattern = regexp.MustCompile(`^COTAHIST_M(\d{2})(\d{4})\.(TXT|ZIP)$`)
)

// Name describes one archive's classification, derived entirely from its
// filename — the same three-pattern scheme the exchange itself uses.
type Name struct {
	Filename  string
	Kind      Kind
	DateFrom  xdate.Date
	DateTo    xdate.Date
}

// DailyName builds the daily archive filename the exchange publishes for d,
// the inverse of Parse for the Daily case.
func DailyName(d xdate.Date) string {
	return fmt.Sprintf("COTAHIST_D%02d%02d%04d.ZIP", d.Day(), d.Month(), d.Year())
}

// Parse classifies filename, extracting the date (daily) or date range
// (monthly, yearly) it covers. An unrecognised filename is an error: every
// archive the downloader fetches must match one of the three patterns.
func Parse(filename string) (Name, error) {
	if m := dailyPattern.FindStringSubmatch(filename); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		on := xdate.New(year, time.Month(month), day)
		return Name{Filename: filename, Kind: Daily, DateFrom: on, DateTo: on}, nil
	}
	if m := monthlyPattern.FindStringSubmatch(filename); m != nil {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		from := xdate.New(year, time.Month(month), 1)
		return Name{Filename: filename, Kind: Monthly, DateFrom: from, DateTo: from.EndOfMonth()}, nil
	}
	if m := yearlyPattern.FindStringSubmatch(filename); m != nil {
		year, _ := strconv.Atoi(m[1])
		from := xdate.New(year, time.January, 1)
		return Name{Filename: filename, Kind: Yearly, DateFrom: from, DateTo: from.EndOfYear()}, nil
	}
	return Name{}, fmt.Errorf("unrecognised archive filename %q", filename)
}
