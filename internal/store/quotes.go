package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cotahist/fiiquotes/internal/cache"
	"github.com/cotahist/fiiquotes/internal/quote"
	"github.com/cotahist/fiiquotes/internal/xdate"
)

// Stats summarises the quotes table's current contents.
type Stats struct {
	Rows     int
	Tickers  int
	DateMin  string
	DateMax  string
}

// QuoteStore bulk-inserts and queries quote records, grounded on
// db_managers/cotacoes.py.
type QuoteStore struct {
	db    *sql.DB
	cache *cache.Cache
}

// NewQuoteStore wraps db. cache may be nil to disable caching.
func NewQuoteStore(db *sql.DB, c *cache.Cache) *QuoteStore {
	return &QuoteStore{db: db, cache: c}
}

// BulkInsert inserts records in batches of batchSize, ignoring rows that
// conflict on the (date, ticker) primary key (idempotent re-ingest), and
// returns the number of rows actually inserted. After every batch has
// committed, and only when at least one row was inserted, it invalidates the
// latest_date/stats/list_tickers cache namespaces; the commits and the
// invalidation are not one atomic step, so a concurrent reader can still
// hit a cached value in between.
func (s *QuoteStore) BulkInsert(records []quote.Record, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	inserted := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		n, err := s.insertBatch(records[start:end])
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	if inserted > 0 && s.cache != nil {
		s.cache.Invalidate("latest_date")
		s.cache.Invalidate("stats")
		s.cache.Invalidate("list_tickers")
	}
	return inserted, nil
}

func (s *QuoteStore) insertBatch(batch []quote.Record) (int, error) {
	inserted := 0
	err := retryOnBusy(3, 2*time.Second, func() error {
		inserted = 0
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO quotes (date, ticker, open, high, low, close, volume, trade_count, quantity)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range batch {
			res, err := stmt.Exec(r.Date.String(), r.Ticker,
				r.Open.InexactFloat64(), r.High.InexactFloat64(), r.Low.InexactFloat64(),
				r.Close.InexactFloat64(), r.Volume.InexactFloat64(), r.Trades, r.Traded)
			if err != nil {
				return classify(err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(affected)
		}
		return tx.Commit()
	})
	return inserted, err
}

// DeleteRange deletes every quote with date in [from, to] inclusive,
// returning the number of rows deleted. Used when a FileLedger verdict is
// Modified, before re-inserting.
func (s *QuoteStore) DeleteRange(from, to xdate.Date) (int, error) {
	res, err := s.db.Exec(`DELETE FROM quotes WHERE date >= ? AND date <= ?`, from.String(), to.String())
	if err != nil {
		return 0, fmt.Errorf("deleting range %s..%s: %w", from, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 && s.cache != nil {
		s.cache.Invalidate("latest_date")
		s.cache.Invalidate("stats")
		s.cache.Invalidate("list_tickers")
	}
	return int(n), nil
}

// LatestDate returns the most recent trade date stored, or ok=false if the
// table is empty.
func (s *QuoteStore) LatestDate() (d xdate.Date, ok bool, err error) {
	if s.cache != nil {
		if v, hit := s.cache.Get("latest_date", "max"); hit {
			cached := v.(*xdate.Date)
			if cached == nil {
				return xdate.Date{}, false, nil
			}
			return *cached, true, nil
		}
	}
	var maxDate sql.NullString
	if err := s.db.QueryRow(`SELECT MAX(date) FROM quotes`).Scan(&maxDate); err != nil {
		return xdate.Date{}, false, err
	}
	if !maxDate.Valid {
		if s.cache != nil {
			s.cache.Put("latest_date", "max", (*xdate.Date)(nil))
		}
		return xdate.Date{}, false, nil
	}
	parsed, err := xdate.Parse(maxDate.String)
	if err != nil {
		return xdate.Date{}, false, err
	}
	if s.cache != nil {
		s.cache.Put("latest_date", "max", &parsed)
	}
	return parsed, true, nil
}

// ListTickers returns every distinct ticker present in the store.
func (s *QuoteStore) ListTickers() ([]string, error) {
	return cache.Cached(s.cache, "list_tickers", "all", func() ([]string, error) {
		rows, err := s.db.Query(`SELECT DISTINCT ticker FROM quotes ORDER BY ticker`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var tickers []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				return nil, err
			}
			tickers = append(tickers, t)
		}
		return tickers, rows.Err()
	})
}

// GetStats returns aggregate statistics over the quotes table.
func (s *QuoteStore) GetStats() (Stats, error) {
	return cache.Cached(s.cache, "stats", "all", func() (Stats, error) {
		var st Stats
		var dateMin, dateMax sql.NullString
		err := s.db.QueryRow(`
			SELECT COUNT(*), COUNT(DISTINCT ticker), MIN(date), MAX(date) FROM quotes
		`).Scan(&st.Rows, &st.Tickers, &dateMin, &dateMax)
		if err != nil {
			return Stats{}, err
		}
		st.DateMin = dateMin.String
		st.DateMax = dateMax.String
		return st, nil
	})
}

// Query returns every quote for ticker with date in [from, to] inclusive,
// ascending by date.
func (s *QuoteStore) Query(ticker string, from, to xdate.Date) ([]quote.Record, error) {
	rows, err := s.db.Query(`
		SELECT date, ticker, open, high, low, close, volume, trade_count, quantity
		FROM quotes WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, ticker, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("querying %s %s..%s: %w", ticker, from, to, err)
	}
	defer rows.Close()

	var records []quote.Record
	for rows.Next() {
		r, err := scanQuoteRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanQuoteRow(rows *sql.Rows) (quote.Record, error) {
	var dateStr, ticker string
	var open, high, low, closePrice, volume float64
	var trades, traded int64
	if err := rows.Scan(&dateStr, &ticker, &open, &high, &low, &closePrice, &volume, &trades, &traded); err != nil {
		return quote.Record{}, err
	}
	d, err := xdate.Parse(dateStr)
	if err != nil {
		return quote.Record{}, err
	}
	return quote.Record{
		Date:   d,
		Ticker: ticker,
		Open:   decimal.NewFromFloat(open),
		High:   decimal.NewFromFloat(high),
		Low:    decimal.NewFromFloat(low),
		Close:  decimal.NewFromFloat(closePrice),
		Volume: decimal.NewFromFloat(volume),
		Trades: trades,
		Traded: traded,
	}, nil
}
