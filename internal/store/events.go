package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cotahist/fiiquotes/internal/xdate"
)

// ActionKind is a corporate-action kind.
type ActionKind string

const (
	Split        ActionKind = "split"
	ReverseSplit ActionKind = "reverse_split"
)

// CorporateAction mirrors one row of the corporate_actions table, generalized
// from the original's Portuguese grupamento/desdobramento kind strings to
// split/reverse_split.
type CorporateAction struct {
	Ticker        string
	EffectiveDate xdate.Date
	Kind          ActionKind
	Factor        float64
	RecordedAt    time.Time
}

func (a CorporateAction) validate() error {
	if a.Factor <= 0 {
		return fmt.Errorf("%w: factor must be > 0, got %v", ErrValidation, a.Factor)
	}
	if a.Kind != Split && a.Kind != ReverseSplit {
		return fmt.Errorf("%w: kind must be split or reverse_split, got %q", ErrValidation, a.Kind)
	}
	if a.Ticker == "" {
		return fmt.Errorf("%w: ticker is required", ErrValidation)
	}
	return nil
}

// ErrValidation tags per-row validation failures from event import/insert.
var ErrValidation = fmt.Errorf("validation error")

// EventStore is CRUD over CorporateAction, grounded on db_managers/eventos.py.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore { return &EventStore{db: db} }

// Insert validates and upserts one corporate action (ticker is uppercased).
func (s *EventStore) Insert(a CorporateAction) error {
	a.Ticker = strings.ToUpper(a.Ticker)
	if err := a.validate(); err != nil {
		return err
	}
	if a.RecordedAt.IsZero() {
		a.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO corporate_actions (ticker, effective_date, kind, factor, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ticker, effective_date, kind) DO UPDATE SET
			factor=excluded.factor, recorded_at=excluded.recorded_at
	`, a.Ticker, a.EffectiveDate.String(), string(a.Kind), a.Factor, a.RecordedAt.Format(time.RFC3339))
	if err != nil {
		return classify(err)
	}
	return nil
}

// List returns corporate actions, optionally filtered by ticker (empty
// string means all) and by effective-date range (zero dates mean
// unbounded).
func (s *EventStore) List(ticker string, from, to xdate.Date) ([]CorporateAction, error) {
	query := `SELECT ticker, effective_date, kind, factor, recorded_at FROM corporate_actions WHERE 1=1`
	var args []any
	if ticker != "" {
		query += ` AND ticker = ?`
		args = append(args, strings.ToUpper(ticker))
	}
	if (from != xdate.Date{}) {
		query += ` AND effective_date >= ?`
		args = append(args, from.String())
	}
	if (to != xdate.Date{}) {
		query += ` AND effective_date <= ?`
		args = append(args, to.String())
	}
	query += ` ORDER BY effective_date ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing corporate actions: %w", err)
	}
	defer rows.Close()

	var actions []CorporateAction
	for rows.Next() {
		var a CorporateAction
		var effDate, kind, recordedAt string
		if err := rows.Scan(&a.Ticker, &effDate, &kind, &a.Factor, &recordedAt); err != nil {
			return nil, err
		}
		a.EffectiveDate, err = xdate.Parse(effDate)
		if err != nil {
			return nil, err
		}
		a.Kind = ActionKind(kind)
		a.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Remove deletes one corporate action by its key.
func (s *EventStore) Remove(ticker string, effectiveDate xdate.Date, kind ActionKind) error {
	_, err := s.db.Exec(`DELETE FROM corporate_actions WHERE ticker = ? AND effective_date = ? AND kind = ?`,
		strings.ToUpper(ticker), effectiveDate.String(), string(kind))
	if err != nil {
		return fmt.Errorf("removing corporate action: %w", err)
	}
	return nil
}

// importRow mirrors one element of the JSON event-import array (spec.md §6.3).
type importRow struct {
	Ticker        string  `json:"ticker"`
	Kind          string  `json:"kind"`
	EffectiveDate string  `json:"effective_date"`
	Factor        float64 `json:"factor"`
}

// ImportResult reports the outcome of a bulk event import.
type ImportResult struct {
	Inserted int
	Skipped  int // duplicate with identical factor
	Rejected []string
}

// Import bulk-loads corporate actions from a JSON array of
// {ticker, kind, effective_date, factor} objects. Unknown fields are
// rejected (via DisallowUnknownFields); a duplicate with an identical
// factor is silently skipped; a duplicate with a conflicting factor is
// reported in Rejected and skipped, not applied.
func (s *EventStore) Import(data []byte) (ImportResult, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var rows []importRow
	if err := dec.Decode(&rows); err != nil {
		return ImportResult{}, fmt.Errorf("decoding event import: %w", err)
	}

	var result ImportResult
	for _, r := range rows {
		eff, err := xdate.Parse(r.EffectiveDate)
		if err != nil {
			result.Rejected = append(result.Rejected, fmt.Sprintf("%s %s: %v", r.Ticker, r.EffectiveDate, err))
			continue
		}
		candidate := CorporateAction{
			Ticker:        strings.ToUpper(r.Ticker),
			EffectiveDate: eff,
			Kind:          ActionKind(r.Kind),
			Factor:        r.Factor,
		}
		if err := candidate.validate(); err != nil {
			result.Rejected = append(result.Rejected, fmt.Sprintf("%s %s: %v", candidate.Ticker, candidate.EffectiveDate, err))
			continue
		}

		existing, err := s.List(candidate.Ticker, candidate.EffectiveDate, candidate.EffectiveDate)
		if err != nil {
			return result, err
		}
		conflict := false
		for _, e := range existing {
			if e.Kind != candidate.Kind {
				continue
			}
			if e.Factor == candidate.Factor {
				result.Skipped++
				conflict = true
				break
			}
			result.Rejected = append(result.Rejected, fmt.Sprintf("%s %s %s: factor conflict %v != %v",
				candidate.Ticker, candidate.EffectiveDate, candidate.Kind, e.Factor, candidate.Factor))
			conflict = true
			break
		}
		if conflict {
			continue
		}
		if err := s.Insert(candidate); err != nil {
			result.Rejected = append(result.Rejected, fmt.Sprintf("%s %s: %v", candidate.Ticker, candidate.EffectiveDate, err))
			continue
		}
		result.Inserted++
	}
	return result, nil
}
