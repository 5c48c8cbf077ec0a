package calendar

import (
	"testing"

	"github.com/cotahist/fiiquotes/internal/xdate"
)

func TestWeekdayOracleWeekendsAreNotTradingDays(t *testing.T) {
	o := WeekdayOracle{}
	saturday := xdate.MustParse("2025-03-22")
	sunday := xdate.MustParse("2025-03-23")
	monday := xdate.MustParse("2025-03-24")
	if o.IsTradingDay(saturday) || o.IsTradingDay(sunday) {
		t.Fatal("weekend reported as trading day")
	}
	if !o.IsTradingDay(monday) {
		t.Fatal("weekday reported as non-trading day")
	}
}

func TestTradingDaysBetween(t *testing.T) {
	o := WeekdayOracle{}
	days := o.TradingDaysBetween(xdate.MustParse("2025-03-21"), xdate.MustParse("2025-03-24"))
	var got []string
	for _, d := range days {
		got = append(got, d.String())
	}
	want := []string{"2025-03-21", "2025-03-24"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPreviousTradingDaySkipsWeekend(t *testing.T) {
	o := WeekdayOracle{}
	monday := xdate.MustParse("2025-03-24")
	prev := PreviousTradingDay(o, monday)
	if prev.String() != "2025-03-21" {
		t.Fatalf("PreviousTradingDay = %s, want 2025-03-21", prev)
	}
}
