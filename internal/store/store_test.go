package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cotahist/fiiquotes/internal/cache"
	"github.com/cotahist/fiiquotes/internal/quote"
	"github.com/cotahist/fiiquotes/internal/xdate"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRecord(date, ticker string, closeVal float64) quote.Record {
	return quote.Record{
		Date:   xdate.MustParse(date),
		Ticker: ticker,
		Open:   decimal.NewFromFloat(closeVal),
		High:   decimal.NewFromFloat(closeVal),
		Low:    decimal.NewFromFloat(closeVal),
		Close:  decimal.NewFromFloat(closeVal),
		Volume: decimal.NewFromFloat(1000),
		Trades: 5,
		Traded: 100,
	}
}

func TestQuoteStoreBulkInsertIdempotent(t *testing.T) {
	db := openTestDB(t)
	qs := NewQuoteStore(db, cache.New(time.Minute, 100))

	records := []quote.Record{sampleRecord("2025-03-18", "ABCD11", 10.50)}
	n, err := qs.BulkInsert(records, 10)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("first insert = %d, want 1", n)
	}

	n, err = qs.BulkInsert(records, 10)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second insert = %d, want 0 (idempotent)", n)
	}

	stats, err := qs.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Rows != 1 {
		t.Fatalf("rows = %d, want 1", stats.Rows)
	}
}

func TestQuoteStoreDeleteRangeThenReinsert(t *testing.T) {
	db := openTestDB(t)
	qs := NewQuoteStore(db, nil)

	if _, err := qs.BulkInsert([]quote.Record{sampleRecord("2025-03-18", "ABCD11", 10.50)}, 10); err != nil {
		t.Fatal(err)
	}

	deleted, err := qs.DeleteRange(xdate.MustParse("2025-03-18"), xdate.MustParse("2025-03-18"))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	inserted, err := qs.BulkInsert([]quote.Record{sampleRecord("2025-03-18", "ABCD11", 11.00)}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if inserted != 1 {
		t.Fatalf("reinsert = %d, want 1", inserted)
	}

	rows, err := qs.Query("ABCD11", xdate.MustParse("2025-03-18"), xdate.MustParse("2025-03-18"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || !rows[0].Close.Equal(decimal.NewFromFloat(11.00)) {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestQuoteStoreQueryAscendingByDate(t *testing.T) {
	db := openTestDB(t)
	qs := NewQuoteStore(db, nil)
	_, err := qs.BulkInsert([]quote.Record{
		sampleRecord("2025-03-20", "ABCD11", 10),
		sampleRecord("2025-03-18", "ABCD11", 9),
		sampleRecord("2025-03-19", "ABCD11", 9.5),
	}, 10)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := qs.Query("ABCD11", xdate.MustParse("2025-01-01"), xdate.MustParse("2025-12-31"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("len = %d, want 3", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Date.After(rows[i].Date) {
			t.Fatalf("not ascending: %v then %v", rows[i-1].Date, rows[i].Date)
		}
	}
}

func TestFileLedgerUnseenUnchangedModified(t *testing.T) {
	db := openTestDB(t)
	fl := NewFileLedger(db, nil)

	v, err := fl.IsProcessed("COTAHIST_D18032025.ZIP", "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if v != Unseen {
		t.Fatalf("verdict = %v, want Unseen", v)
	}

	if err := fl.Record("COTAHIST_D18032025.ZIP", "daily", 1, "hash1"); err != nil {
		t.Fatal(err)
	}

	v, err = fl.IsProcessed("COTAHIST_D18032025.ZIP", "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if v != Unchanged {
		t.Fatalf("verdict = %v, want Unchanged", v)
	}

	v, err = fl.IsProcessed("COTAHIST_D18032025.ZIP", "hash2")
	if err != nil {
		t.Fatal(err)
	}
	if v != Modified {
		t.Fatalf("verdict = %v, want Modified", v)
	}
}

func TestFileLedgerRecordTwiceKeepsZeroRowsOnUnchanged(t *testing.T) {
	db := openTestDB(t)
	fl := NewFileLedger(db, nil)

	if err := fl.Record("a.zip", "daily", 1, "h"); err != nil {
		t.Fatal(err)
	}
	if err := fl.Record("a.zip", "daily", 0, "h"); err != nil {
		t.Fatal(err)
	}
	entries, err := fl.ListProcessed()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].RowsAdded != 0 {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestFileLedgerMaxProcessedDate(t *testing.T) {
	db := openTestDB(t)
	fl := NewFileLedger(db, nil)

	if _, ok, err := fl.MaxProcessedDate(); err != nil || ok {
		t.Fatalf("empty ledger: ok=%v err=%v, want ok=false", ok, err)
	}

	if err := fl.Record("COTAHIST_D17032025.ZIP", "daily", 1, "h1"); err != nil {
		t.Fatal(err)
	}
	if err := fl.Record("COTAHIST_M022025.ZIP", "monthly", 10, "h2"); err != nil {
		t.Fatal(err)
	}

	max, ok, err := fl.MaxProcessedDate()
	if err != nil {
		t.Fatal(err)
	}
	if !ok || max.String() != "2025-03-17" {
		t.Fatalf("max = %v ok=%v, want 2025-03-17 (the daily archive's date beats the monthly archive's end-of-month)", max, ok)
	}
}

func TestFileLedgerForget(t *testing.T) {
	db := openTestDB(t)
	fl := NewFileLedger(db, nil)
	if err := fl.Record("a.zip", "daily", 1, "h"); err != nil {
		t.Fatal(err)
	}
	if err := fl.Forget("a.zip"); err != nil {
		t.Fatal(err)
	}
	v, err := fl.IsProcessed("a.zip", "h")
	if err != nil {
		t.Fatal(err)
	}
	if v != Unseen {
		t.Fatalf("verdict after forget = %v, want Unseen", v)
	}
}

func TestEventStoreValidation(t *testing.T) {
	db := openTestDB(t)
	es := NewEventStore(db)

	bad := CorporateAction{Ticker: "XYZ11", EffectiveDate: xdate.MustParse("2022-08-30"), Kind: Split, Factor: -1}
	if err := es.Insert(bad); err == nil {
		t.Fatal("expected validation error for non-positive factor")
	}

	good := CorporateAction{Ticker: "xyz11", EffectiveDate: xdate.MustParse("2022-08-30"), Kind: Split, Factor: 10}
	if err := es.Insert(good); err != nil {
		t.Fatal(err)
	}
	actions, err := es.List("XYZ11", xdate.Date{}, xdate.Date{})
	if err != nil {
		t.Fatal(err)
	}
	if len(actions) != 1 || actions[0].Ticker != "XYZ11" {
		t.Fatalf("actions = %+v, want uppercased ticker", actions)
	}
}

func TestEventStoreImportDuplicateHandling(t *testing.T) {
	db := openTestDB(t)
	es := NewEventStore(db)

	payload := []byte(`[
		{"ticker":"XYZ11","kind":"split","effective_date":"2022-08-30","factor":10},
		{"ticker":"XYZ11","kind":"split","effective_date":"2022-08-30","factor":10},
		{"ticker":"XYZ11","kind":"split","effective_date":"2022-08-30","factor":20}
	]`)
	result, err := es.Import(payload)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 1 {
		t.Fatalf("inserted = %d, want 1", result.Inserted)
	}
	if result.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1 (identical duplicate)", result.Skipped)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("rejected = %v, want 1 conflicting-factor entry", result.Rejected)
	}
}

func TestEventStoreImportRejectsUnknownFields(t *testing.T) {
	db := openTestDB(t)
	es := NewEventStore(db)
	_, err := es.Import([]byte(`[{"ticker":"XYZ11","kind":"split","effective_date":"2022-08-30","factor":10,"extra":1}]`))
	if err == nil {
		t.Fatal("expected decode error for unknown field")
	}
}
