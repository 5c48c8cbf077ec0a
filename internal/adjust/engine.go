// Package adjust reconstructs split/reverse-split-adjusted quote series and
// merges renamed-ticker histories into one continuous series, grounded on
// db_managers/exportacao.py's _ajustar_precos (per-event boolean mask and
// scale) and on the teacher's lots.go for the shape of a backward,
// accumulating-factor walk.
package adjust

import (
	"fmt"
	"sort"

	"github.com/cotahist/fiiquotes/internal/quote"
	"github.com/cotahist/fiiquotes/internal/store"
	"github.com/cotahist/fiiquotes/internal/xdate"
)

// SeriesSpec is an ordered list of historical ticker symbols ending in the
// current symbol, e.g. ["OLD11", "MID11", "NEW11"].
type SeriesSpec struct {
	Tickers []string
}

// TerminalTicker is the symbol the merged, adjusted series is labelled by.
func (s SeriesSpec) TerminalTicker() string {
	if len(s.Tickers) == 0 {
		return ""
	}
	return s.Tickers[len(s.Tickers)-1]
}

// QuoteSource is the subset of QuoteStore the engine needs.
type QuoteSource interface {
	Query(ticker string, from, to xdate.Date) ([]quote.Record, error)
}

// EventSource is the subset of EventStore the engine needs.
type EventSource interface {
	List(ticker string, from, to xdate.Date) ([]store.CorporateAction, error)
}

// Engine builds adjusted, ticker-merged series for export.
type Engine struct {
	Quotes QuoteSource
	Events EventSource
}

// farPast and farFuture bound the full history of any ticker; QuoteStore's
// primary key means an over-wide query is cheap (an indexed range scan).
var farPast = xdate.MustParse("1900-01-01")
var farFuture = xdate.MustParse("2999-12-31")

// AdjustedRecord is one row of a built series: the raw stored values plus
// the back-adjusted close/open/high/low/quantity/volume.
type AdjustedRecord struct {
	quote.Record
	AdjClose  float64
	AdjOpen   float64
	AdjHigh   float64
	AdjLow    float64
	AdjTraded float64
	AdjVolume float64
}

// Build merges spec's ticker windows into one ascending series labelled by
// the terminal ticker, and back-adjusts every row for the corporate actions
// recorded against any ticker in spec.
func (e *Engine) Build(spec SeriesSpec) ([]AdjustedRecord, error) {
	if len(spec.Tickers) == 0 {
		return nil, fmt.Errorf("adjust: empty ticker series")
	}

	merged, err := e.mergeSeries(spec)
	if err != nil {
		return nil, err
	}

	var actions []store.CorporateAction
	for _, t := range spec.Tickers {
		a, err := e.Events.List(t, farPast, farFuture)
		if err != nil {
			return nil, fmt.Errorf("listing corporate actions for %s: %w", t, err)
		}
		actions = append(actions, a...)
	}

	return backAdjust(merged, actions), nil
}

// mergeSeries concatenates each ticker's quotes in spec order, ascending by
// date. History windows are expected non-overlapping; on overlap, the
// later ticker in spec wins — implemented by letting a later ticker's row
// for the same date overwrite an earlier ticker's row in the merge map.
func (e *Engine) mergeSeries(spec SeriesSpec) ([]quote.Record, error) {
	byDate := make(map[xdate.Date]quote.Record)
	for _, t := range spec.Tickers {
		rows, err := e.Quotes.Query(t, farPast, farFuture)
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", t, err)
		}
		for _, r := range rows {
			byDate[r.Date] = r
		}
	}

	merged := make([]quote.Record, 0, len(byDate))
	for _, r := range byDate {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged, nil
}

// backAdjust applies the back-adjustment rule: every price on a date
// strictly before an event's effective_date is scaled by 1/k for a split
// of factor k, and by k for a reverse_split; quantity and volume scale
// inversely to price. The most recent row relative to every event is left
// unchanged.
func backAdjust(rows []quote.Record, actions []store.CorporateAction) []AdjustedRecord {
	out := make([]AdjustedRecord, len(rows))
	for i, r := range rows {
		priceFactor := 1.0
		for _, a := range actions {
			if !a.EffectiveDate.After(r.Date) {
				continue // event's effective_date must be strictly after r.Date
			}
			switch a.Kind {
			case store.Split:
				priceFactor /= a.Factor
			case store.ReverseSplit:
				priceFactor *= a.Factor
			}
		}
		quantityFactor := 1.0
		if priceFactor != 0 {
			quantityFactor = 1.0 / priceFactor
		}

		out[i] = AdjustedRecord{
			Record:    r,
			AdjClose:  r.Close.InexactFloat64() * priceFactor,
			AdjOpen:   r.Open.InexactFloat64() * priceFactor,
			AdjHigh:   r.High.InexactFloat64() * priceFactor,
			AdjLow:    r.Low.InexactFloat64() * priceFactor,
			AdjTraded: float64(r.Traded) * quantityFactor,
			AdjVolume: r.Volume.InexactFloat64() * quantityFactor,
		}
	}
	return out
}
