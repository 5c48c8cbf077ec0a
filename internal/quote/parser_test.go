package quote

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

// buildLine lays out a synthetic COTAHIST market-record line for ticker
// class 12 (fund tickers), with the numeric fields left-padded with zeros as
// the real layout does. Only the byte ranges this parser reads are filled;
// the rest of the 245-byte layout is spaces.
func buildLine(recordType, classCode, date, ticker string, open, high, low, closePrice, volume int64, trades, traded int64) string {
	line := make([]byte, 245)
	for i := range line {
		line[i] = ' '
	}
	put := func(from, to int, s string) {
		copy(line[from-1:to], s)
	}
	pad := func(n int64, width int) string {
		s := itoa(n)
		for len(s) < width {
			s = "0" + s
		}
		return s
	}
	put(1, 2, recordType)
	put(3, 10, date)
	put(11, 12, classCode)
	put(13, 24, ticker)
	put(57, 69, pad(open, 13))
	put(70, 82, pad(high, 13))
	put(83, 95, pad(low, 13))
	put(109, 121, pad(closePrice, 13))
	put(148, 152, pad(trades, 5))
	put(153, 170, pad(traded, 18))
	put(171, 188, pad(volume, 18))
	return string(line)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func TestParseLineFundTicker(t *testing.T) {
	line := buildLine("01", "12", "20250318", "ABCD11", 1000, 1100, 900, 1050, 500000, 12, 300)
	rec, ok, err := ParseLine(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for a fund-ticker market record")
	}
	if rec.Ticker != "ABCD11" {
		t.Fatalf("ticker = %q", rec.Ticker)
	}
	if rec.Date.String() != "2025-03-18" {
		t.Fatalf("date = %q", rec.Date.String())
	}
	if !rec.Close.Equal(decimal.NewFromFloat(10.50)) {
		t.Fatalf("close = %v, want 10.50", rec.Close)
	}
	if !rec.Open.Equal(decimal.NewFromFloat(10.00)) {
		t.Fatalf("open = %v, want 10.00", rec.Open)
	}
	if rec.Trades != 12 || rec.Traded != 300 {
		t.Fatalf("trades=%d traded=%d", rec.Trades, rec.Traded)
	}
}

func TestParseLineSkipsWrongClassCode(t *testing.T) {
	line := buildLine("01", "02", "20250318", "PETR4", 1000, 1100, 900, 1050, 500000, 12, 300)
	_, ok, err := ParseLine(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected skip for non-fund class code")
	}
}

func TestParseLineSkipsWrongRecordType(t *testing.T) {
	line := buildLine("99", "12", "20250318", "ABCD11", 1000, 1100, 900, 1050, 500000, 12, 300)
	_, ok, err := ParseLine(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected skip for non market-record type")
	}
}

func TestParseLineTooShort(t *testing.T) {
	_, ok, err := ParseLine("01 12 short line")
	if err != nil || ok {
		t.Fatal("expected silent skip for too-short line, not an error")
	}
}

func TestParseLinesRoundTrip(t *testing.T) {
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, buildLine("01", "12", "20250318", "ABCD11", 1000, 1100, 900, 1050, 500000, 12, 300))
	}
	for i := 0; i < 3; i++ {
		lines = append(lines, buildLine("01", "02", "20250318", "PETR4", 1000, 1100, 900, 1050, 500000, 12, 300))
	}
	input := strings.Join(lines, "\n")
	records, stats, err := ParseLines(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	if stats.Parsed != 5 || stats.Skipped != 3 || stats.Malformed != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
