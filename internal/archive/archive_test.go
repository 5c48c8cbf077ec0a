package archive

import (
	"testing"

	"github.com/cotahist/fiiquotes/internal/xdate"
)

func TestParseDaily(t *testing.T) {
	n, err := Parse("COTAHIST_D18032025.ZIP")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != Daily {
		t.Fatalf("kind = %v, want Daily", n.Kind)
	}
	if n.DateFrom.String() != "2025-03-18" || n.DateTo.String() != "2025-03-18" {
		t.Fatalf("range = %s..%s", n.DateFrom, n.DateTo)
	}
}

func TestParseMonthly(t *testing.T) {
	n, err := Parse("COTAHIST_M032025.ZIP")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != Monthly {
		t.Fatalf("kind = %v, want Monthly", n.Kind)
	}
	if n.DateFrom.String() != "2025-03-01" || n.DateTo.String() != "2025-03-31" {
		t.Fatalf("range = %s..%s", n.DateFrom, n.DateTo)
	}
}

func TestParseMonthlyDecemberRollover(t *testing.T) {
	n, err := Parse("COTAHIST_M122024.ZIP")
	if err != nil {
		t.Fatal(err)
	}
	if n.DateTo.String() != "2024-12-31" {
		t.Fatalf("DateTo = %s, want 2024-12-31", n.DateTo)
	}
}

func TestParseYearly(t *testing.T) {
	n, err := Parse("COTAHIST_A2024.ZIP")
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != Yearly {
		t.Fatalf("kind = %v, want Yearly", n.Kind)
	}
	if n.DateFrom.String() != "2024-01-01" || n.DateTo.String() != "2024-12-31" {
		t.Fatalf("range = %s..%s", n.DateFrom, n.DateTo)
	}
}

func TestParseUnrecognised(t *testing.T) {
	if _, err := Parse("NOTHING.ZIP"); err == nil {
		t.Fatal("expected error for unrecognised filename")
	}
}

func TestDailyNameRoundTripsThroughParse(t *testing.T) {
	day := xdate.MustParse("2025-03-18")
	name := DailyName(day)
	if name != "COTAHIST_D18032025.ZIP" {
		t.Fatalf("DailyName = %q", name)
	}
	n, err := Parse(name)
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != Daily || n.DateFrom != day {
		t.Fatalf("round trip = %+v", n)
	}
}
