package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cotahist/fiiquotes/internal/archive"
	"github.com/cotahist/fiiquotes/internal/cache"
	"github.com/cotahist/fiiquotes/internal/xdate"
)

// Verdict is the result of checking an archive against the ledger.
type Verdict int

const (
	Unseen Verdict = iota
	Unchanged
	Modified
)

// FileLedgerEntry is one row of the files_processed table.
type FileLedgerEntry struct {
	ArchiveName string
	Kind        string
	ProcessedAt time.Time
	RowsAdded   int
	ContentHash string
}

// FileLedger tracks which archives have been ingested and under which
// content hash, grounded on db_managers/arquivos.py.
type FileLedger struct {
	db    *sql.DB
	cache *cache.Cache
}

// NewFileLedger wraps db. cache may be nil to disable caching.
func NewFileLedger(db *sql.DB, c *cache.Cache) *FileLedger {
	return &FileLedger{db: db, cache: c}
}

// IsProcessed compares currentHash against the stored hash for archiveName,
// if any, and returns Unseen, Unchanged, or Modified.
func (l *FileLedger) IsProcessed(archiveName, currentHash string) (Verdict, error) {
	var storedHash string
	err := l.db.QueryRow(
		`SELECT content_hash FROM files_processed WHERE archive_name = ?`, archiveName,
	).Scan(&storedHash)
	switch {
	case err == sql.ErrNoRows:
		return Unseen, nil
	case err != nil:
		return Unseen, fmt.Errorf("checking ledger for %s: %w", archiveName, err)
	case storedHash == currentHash:
		return Unchanged, nil
	default:
		return Modified, nil
	}
}

// Record upserts the ledger entry for archiveName and, once the transaction
// has committed, invalidates list_processed's cache namespace in the same
// call. The commit and the invalidation are not one atomic step: a
// concurrent ListProcessed that runs between them can still return the
// previously cached listing.
func (l *FileLedger) Record(archiveName, kind string, rowsInserted int, contentHash string) error {
	return retryOnBusy(3, 2*time.Second, func() error {
		tx, err := l.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO files_processed (archive_name, kind, processed_at, rows_added, content_hash)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(archive_name) DO UPDATE SET
				kind=excluded.kind,
				processed_at=excluded.processed_at,
				rows_added=excluded.rows_added,
				content_hash=excluded.content_hash
		`, archiveName, kind, time.Now().UTC().Format(time.RFC3339), rowsInserted, contentHash)
		if err != nil {
			return classify(err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		if l.cache != nil {
			l.cache.Invalidate("list_processed")
		}
		return nil
	})
}

// ListProcessed returns every ledger entry, newest first.
func (l *FileLedger) ListProcessed() ([]FileLedgerEntry, error) {
	if l.cache != nil {
		if v, ok := l.cache.Get("list_processed", "all"); ok {
			return v.([]FileLedgerEntry), nil
		}
	}
	rows, err := l.db.Query(`SELECT archive_name, kind, processed_at, rows_added, content_hash FROM files_processed ORDER BY processed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing processed files: %w", err)
	}
	defer rows.Close()

	var entries []FileLedgerEntry
	for rows.Next() {
		var e FileLedgerEntry
		var processedAt string
		if err := rows.Scan(&e.ArchiveName, &e.Kind, &processedAt, &e.RowsAdded, &e.ContentHash); err != nil {
			return nil, err
		}
		e.ProcessedAt, _ = time.Parse(time.RFC3339, processedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if l.cache != nil {
		l.cache.Put("list_processed", "all", entries)
	}
	return entries, nil
}

// MaxProcessedDate returns the latest date covered by any ledger entry,
// derived from each archive_name's own filename classification (the ledger
// itself stores no date columns). ok is false when the ledger is empty or
// holds no recognisable archive name.
func (l *FileLedger) MaxProcessedDate() (max xdate.Date, ok bool, err error) {
	entries, err := l.ListProcessed()
	if err != nil {
		return xdate.Date{}, false, err
	}
	for _, e := range entries {
		name, parseErr := archive.Parse(e.ArchiveName)
		if parseErr != nil {
			continue
		}
		if !ok || name.DateTo.After(max) {
			max = name.DateTo
			ok = true
		}
	}
	return max, ok, nil
}

// Forget removes archiveName from the ledger, for administrative forced
// reprocessing.
func (l *FileLedger) Forget(archiveName string) error {
	_, err := l.db.Exec(`DELETE FROM files_processed WHERE archive_name = ?`, archiveName)
	if err != nil {
		return fmt.Errorf("forgetting %s: %w", archiveName, err)
	}
	if l.cache != nil {
		l.cache.Invalidate("list_processed")
	}
	return nil
}
