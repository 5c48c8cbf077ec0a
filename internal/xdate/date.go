// Package xdate provides a day-granularity date type used throughout the
// pipeline instead of raw time.Time, so that serialization to the ISO
// YYYY-MM-DD text format stored in the database is stable and cheap.
package xdate

import (
	"encoding/json"
	"fmt"
	"time"
)

const readFormat = "2006-1-2" // permissive read format, allows 2025-7-1

// Format is the canonical write format, matching the store's TEXT columns.
const Format = "2006-01-02"

// Date represents a date with no lower than day granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Year returns the year.
func (d Date) Year() int { return d.y }

// Month returns the month.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of month.
func (d Date) Day() int { return d.d }

// Weekday returns the day of the week for the date.
func (d Date) Weekday() time.Weekday { return d.time().Weekday() }

// Before reports whether d is strictly before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d is strictly after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Add returns a new Date with the given number of days added (may be negative).
func (d Date) Add(days int) Date { return New(d.y, d.m, d.d+days) }

// Today returns the current date in UTC.
func Today() Date { return New(time.Now().UTC().Date()) }

// String formats the date in its canonical YYYY-MM-DD form.
func (d Date) String() string { return d.time().Format(Format) }

// Parse parses a Date from a string. Lenient: accepts "2025-7-1" as well as "2025-07-01".
func Parse(str string) (Date, error) {
	t, err := time.Parse(readFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, want format %q: %w", str, readFormat, err)
	}
	return New(t.Date()), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// ParseCompact parses the fixed-width YYYYMMDD form used in archive record lines.
func ParseCompact(str string) (Date, error) {
	t, err := time.Parse("20060102", str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid compact date %q: %w", str, err)
	}
	return New(t.Date()), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	s := d.String()
	return json.Marshal(&s)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var _ json.Marshaler = Date{}
var _ json.Unmarshaler = (*Date)(nil)

// EndOfMonth returns the last calendar day of d's month.
func (d Date) EndOfMonth() Date { return New(d.y, d.m+1, 0) }

// StartOfMonth returns the first calendar day of d's month.
func (d Date) StartOfMonth() Date { return New(d.y, d.m, 1) }

// EndOfYear returns December 31st of d's year.
func (d Date) EndOfYear() Date { return New(d.y, time.December, 31) }

// StartOfYear returns January 1st of d's year.
func (d Date) StartOfYear() Date { return New(d.y, time.January, 1) }
