package quote

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cotahist/fiiquotes/internal/xdate"
)

// fundTickerClassCode is the BDI code ("codbdi") identifying fund tickers.
const fundTickerClassCode = "12"

// marketRecordType is the record-type tag ("tipo_registro") for quote lines.
const marketRecordType = "01"

// minLineLength is the shortest line that can possibly carry every field
// this parser reads. Shorter lines are skipped without a panic and counted
// as Skipped, not Malformed.
const minLineLength = 188

// field holds a 1-indexed, inclusive byte range from the B3 layout document,
// converted once to the 0-indexed, half-open Go slice range [from, to).
type field struct{ from, to int }

// byteRange converts a 1-indexed inclusive range (as written in the B3
// layout and in spec prose) into Go's 0-indexed half-open slice bounds.
func byteRange(fromOneIndexed, toOneIndexedInclusive int) field {
	return field{from: fromOneIndexed - 1, to: toOneIndexedInclusive}
}

var (
	fieldRecordType = byteRange(1, 2)
	fieldDate       = byteRange(3, 10)
	fieldClassCode  = byteRange(11, 12)
	fieldTicker     = byteRange(13, 24)
	fieldOpen       = byteRange(57, 69)
	fieldHigh       = byteRange(70, 82)
	fieldLow        = byteRange(83, 95)
	fieldClose      = byteRange(109, 121)
	fieldTrades     = byteRange(148, 152)
	fieldTraded     = byteRange(153, 170)
	fieldVolume     = byteRange(171, 188)
)

func (f field) slice(line string) string {
	if f.to > len(line) {
		return ""
	}
	return line[f.from:f.to]
}

// Stats counts the outcome of parsing a set of lines, so the Ingestor can
// report the "K valid / J skipped" counts the round-trip property requires.
type Stats struct {
	Parsed    int
	Skipped   int // too short, or wrong record type or class code; not an error
	Malformed int // right type/class but a field failed to decode
}

// ParseLine decodes a single COTAHIST line. It returns ok=false, with no
// error, for any line that is not a fund-ticker market record (wrong record
// type, wrong class code) — that is an expected, silent skip, not a parse
// failure. A non-nil error means the line looked like a fund-ticker record
// but a field was malformed (bad date, bad number, empty ticker).
func ParseLine(line string) (rec Record, ok bool, err error) {
	if len(line) < minLineLength {
		return Record{}, false, nil
	}
	if strings.TrimSpace(fieldRecordType.slice(line)) != marketRecordType {
		return Record{}, false, nil
	}
	if strings.TrimSpace(fieldClassCode.slice(line)) != fundTickerClassCode {
		return Record{}, false, nil
	}

	ticker := strings.TrimSpace(fieldTicker.slice(line))
	if ticker == "" {
		return Record{}, false, fmt.Errorf("empty ticker field")
	}

	date, err := xdate.ParseCompact(strings.TrimSpace(fieldDate.slice(line)))
	if err != nil {
		return Record{}, false, fmt.Errorf("parsing date: %w", err)
	}

	open, err := parseImpliedDecimal(fieldOpen.slice(line))
	if err != nil {
		return Record{}, false, fmt.Errorf("parsing open: %w", err)
	}
	high, err := parseImpliedDecimal(fieldHigh.slice(line))
	if err != nil {
		return Record{}, false, fmt.Errorf("parsing high: %w", err)
	}
	low, err := parseImpliedDecimal(fieldLow.slice(line))
	if err != nil {
		return Record{}, false, fmt.Errorf("parsing low: %w", err)
	}
	closePrice, err := parseImpliedDecimal(fieldClose.slice(line))
	if err != nil {
		return Record{}, false, fmt.Errorf("parsing close: %w", err)
	}
	volume, err := parseImpliedDecimal(fieldVolume.slice(line))
	if err != nil {
		return Record{}, false, fmt.Errorf("parsing volume: %w", err)
	}
	trades, err := parseInt(fieldTrades.slice(line))
	if err != nil {
		return Record{}, false, fmt.Errorf("parsing trade count: %w", err)
	}
	traded, err := parseInt(fieldTraded.slice(line))
	if err != nil {
		return Record{}, false, fmt.Errorf("parsing traded quantity: %w", err)
	}

	for _, v := range []decimal.Decimal{open, high, low, closePrice, volume} {
		if v.IsNegative() {
			return Record{}, false, fmt.Errorf("negative numeric field")
		}
	}
	if trades < 0 || traded < 0 {
		return Record{}, false, fmt.Errorf("negative integer field")
	}

	return Record{
		Date:   date,
		Ticker: ticker,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
		Trades: trades,
		Traded: traded,
	}, true, nil
}

// parseImpliedDecimal converts a fixed-width digit string with an implied
// 2-decimal scale (the B3 "(n)V99" layout convention) into a decimal.Decimal.
func parseImpliedDecimal(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.New(n, -2), nil
}

func parseInt(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	return strconv.ParseInt(trimmed, 10, 64)
}

// ParseLines decodes every line from r single-threaded, accumulating Stats.
// It never returns an error for malformed lines; those are only counted.
func ParseLines(r io.Reader) ([]Record, Stats, error) {
	var stats Stats
	var records []Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		rec, ok, err := ParseLine(line)
		switch {
		case err != nil:
			stats.Malformed++
		case !ok:
			stats.Skipped++
		default:
			stats.Parsed++
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return records, stats, fmt.Errorf("scanning lines: %w", err)
	}
	return records, stats, nil
}
