package adjust

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cotahist/fiiquotes/internal/quote"
	"github.com/cotahist/fiiquotes/internal/store"
	"github.com/cotahist/fiiquotes/internal/xdate"
)

type fakeQuotes map[string][]quote.Record

func (f fakeQuotes) Query(ticker string, from, to xdate.Date) ([]quote.Record, error) {
	var out []quote.Record
	for _, r := range f[ticker] {
		if !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeEvents map[string][]store.CorporateAction

func (f fakeEvents) List(ticker string, from, to xdate.Date) ([]store.CorporateAction, error) {
	return f[ticker], nil
}

func rec(date string, closeVal float64) quote.Record {
	return quote.Record{
		Date:   xdate.MustParse(date),
		Close:  decimal.NewFromFloat(closeVal),
		Open:   decimal.NewFromFloat(closeVal),
		High:   decimal.NewFromFloat(closeVal),
		Low:    decimal.NewFromFloat(closeVal),
		Volume: decimal.NewFromFloat(closeVal * 1000),
		Traded: int64(closeVal * 100),
	}
}

func TestBuildAppliesSplitAdjustment(t *testing.T) {
	quotes := fakeQuotes{
		"XYZ11": {rec("2022-08-29", 100.00), rec("2022-08-30", 10.00)},
	}
	events := fakeEvents{
		"XYZ11": {{Ticker: "XYZ11", EffectiveDate: xdate.MustParse("2022-08-30"), Kind: store.Split, Factor: 10}},
	}
	e := &Engine{Quotes: quotes, Events: events}

	out, err := e.Build(SeriesSpec{Tickers: []string{"XYZ11"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].AdjClose != 10.00 {
		t.Fatalf("2022-08-29 adj_close = %v, want 10.00", out[0].AdjClose)
	}
	if out[1].AdjClose != 10.00 {
		t.Fatalf("2022-08-30 adj_close = %v, want 10.00", out[1].AdjClose)
	}
	if out[0].AdjTraded != 100000.0 {
		t.Fatalf("2022-08-29 adj_traded = %v, want 100000 (10x quantity for a 10x split)", out[0].AdjTraded)
	}
	if out[0].AdjVolume != 1000000.0 {
		t.Fatalf("2022-08-29 adj_volume = %v, want 1000000 (10x volume for a 10x split)", out[0].AdjVolume)
	}
	if out[1].AdjTraded != 1000.0 || out[1].AdjVolume != 10000.0 {
		t.Fatalf("2022-08-30 adj_traded/adj_volume = %v/%v, want unchanged quantity/volume", out[1].AdjTraded, out[1].AdjVolume)
	}
}

func TestBuildMergesTickerRename(t *testing.T) {
	quotes := fakeQuotes{
		"OLD11": {rec("2020-01-02", 1), rec("2020-06-30", 2)},
		"NEW11": {rec("2020-07-01", 3), rec("2020-12-31", 4)},
	}
	events := fakeEvents{}
	e := &Engine{Quotes: quotes, Events: events}

	out, err := e.Build(SeriesSpec{Tickers: []string{"OLD11", "NEW11"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].Date.After(out[i].Date) {
			t.Fatalf("not ascending at %d", i)
		}
	}
	if out[0].Date.String() != "2020-01-02" || out[len(out)-1].Date.String() != "2020-12-31" {
		t.Fatalf("range = %s..%s", out[0].Date, out[len(out)-1].Date)
	}
}

func TestBuildOverlapLaterTickerWins(t *testing.T) {
	quotes := fakeQuotes{
		"OLD11": {rec("2020-07-01", 1)},
		"NEW11": {rec("2020-07-01", 99)},
	}
	e := &Engine{Quotes: quotes, Events: fakeEvents{}}
	out, err := e.Build(SeriesSpec{Tickers: []string{"OLD11", "NEW11"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1 (overlap collapses to one row)", len(out))
	}
	if out[0].AdjClose != 99 {
		t.Fatalf("adj_close = %v, want 99 (later ticker wins)", out[0].AdjClose)
	}
}

func TestTerminalTicker(t *testing.T) {
	s := SeriesSpec{Tickers: []string{"OLD11", "NEW11"}}
	if s.TerminalTicker() != "NEW11" {
		t.Fatalf("TerminalTicker = %q", s.TerminalTicker())
	}
}

func TestBuildRejectsEmptySpec(t *testing.T) {
	e := &Engine{Quotes: fakeQuotes{}, Events: fakeEvents{}}
	if _, err := e.Build(SeriesSpec{}); err == nil {
		t.Fatal("expected error for empty ticker series")
	}
}
