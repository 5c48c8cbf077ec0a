// Package store persists quotes, the file-processing ledger, and corporate
// actions in a SQLite database, tuned for long bulk loads with concurrent
// readers. Grounded on fii_utils/db_utils.py (otimizar_conexao_sqlite) and
// the db_managers/*.py table definitions.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Open opens (and, if needed, creates) the SQLite database at path, applies
// the PRAGMA tuning the pipeline's storage-tuning expectations require
// (write-ahead journalling, synchronous=NORMAL, a multi-second busy
// timeout, a larger page cache), and creates every table this package owns
// if they do not already exist.
func Open(path string, busyTimeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := tune(db, busyTimeout); err != nil {
		db.Close()
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func tune(db *sql.DB, busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds()),
		"PRAGMA cache_size=-100000", // ~100MB page cache, negative = kibibytes
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("applying %q: %w", p, err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	date TEXT NOT NULL,
	ticker TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	trade_count INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	PRIMARY KEY (date, ticker)
);
CREATE INDEX IF NOT EXISTS idx_quotes_date ON quotes(date);
CREATE INDEX IF NOT EXISTS idx_quotes_ticker ON quotes(ticker);

CREATE TABLE IF NOT EXISTS files_processed (
	archive_name TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	processed_at TEXT NOT NULL,
	rows_added INTEGER NOT NULL,
	content_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS corporate_actions (
	ticker TEXT NOT NULL,
	effective_date TEXT NOT NULL,
	kind TEXT NOT NULL CHECK(kind IN ('split','reverse_split')),
	factor REAL NOT NULL CHECK(factor > 0),
	recorded_at TEXT NOT NULL,
	PRIMARY KEY (ticker, effective_date, kind)
);
CREATE INDEX IF NOT EXISTS idx_corporate_actions_ticker ON corporate_actions(ticker);
`

func createTables(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
