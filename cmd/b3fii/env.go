package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/cotahist/fiiquotes/internal/cache"
	"github.com/cotahist/fiiquotes/internal/calendar"
	"github.com/cotahist/fiiquotes/internal/config"
	"github.com/cotahist/fiiquotes/internal/fetch"
	"github.com/cotahist/fiiquotes/internal/ingest"
	"github.com/cotahist/fiiquotes/internal/obslog"
	"github.com/cotahist/fiiquotes/internal/store"
)

// env bundles the components every subcommand needs, built once per
// invocation from the resolved Config — the CLI's equivalent of the
// process-wide singletons spec.md §9 asks to be threaded through
// constructors instead of relying on module-load order.
type env struct {
	cfg    config.Config
	log    *obslog.Logger
	cache  *cache.Cache
	db     closableDB
	quotes *store.QuoteStore
	ledger *store.FileLedger
	events *store.EventStore
	ing    *ingest.Ingestor
	dl     *fetch.Downloader
	sched  *fetch.Scheduler
}

type closableDB interface {
	Close() error
}

func newEnv(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := obslog.New()
	c := cache.New(time.Duration(cfg.CacheDefaultTTLSeconds)*time.Second, cfg.CacheMaxSize)

	db, err := store.Open(cfg.DBPath, time.Duration(cfg.DBTimeoutSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	quotes := store.NewQuoteStore(db, c)
	ledger := store.NewFileLedger(db, c)
	events := store.NewEventStore(db)
	ing := ingest.New(cfg, quotes, ledger, c, logger)

	pinPath := filepath.Join(cfg.CertDir, "fingerprint_history.jsonl")
	pins, err := fetch.OpenPinStore(pinPath)
	if err != nil {
		return nil, fmt.Errorf("opening pin store: %w", err)
	}
	dl := fetch.New(fetch.Options{
		BaseURL:          cfg.BaseURL,
		MaxRetries:       cfg.MaxRetries,
		BackoffFactor:    cfg.BackoffFactor,
		WaitMin:          time.Duration(cfg.WaitBetweenDownloadsMin * float64(time.Second)),
		WaitMax:          time.Duration(cfg.WaitBetweenDownloadsMax * float64(time.Second)),
		CertRotation:     time.Duration(cfg.CertRotationDays) * 24 * time.Hour,
		PinMismatchFatal: cfg.PinMismatchFatal,
		UserAgent:        cfg.UserAgent,
	}, pins, logger)
	sched := fetch.NewScheduler(dl, calendar.WeekdayOracle{}, ledger)

	return &env{
		cfg: cfg, log: logger, cache: c, db: db,
		quotes: quotes, ledger: ledger, events: events, ing: ing, dl: dl, sched: sched,
	}, nil
}

func (e *env) Close() error { return e.db.Close() }
