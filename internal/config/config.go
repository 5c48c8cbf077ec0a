// Package config loads the pipeline's JSON configuration file, merging it
// over a set of hard-coded defaults, the same override-by-file pattern the
// original ConfigManager singleton implements — rendered here as a plain
// value constructed once and threaded through constructors rather than a
// module-level singleton.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config holds every key enumerated in the pipeline's configuration table.
type Config struct {
	BaseURL string `json:"base_url"`
	DataDir string `json:"data_dir"`

	MaxRetries    int     `json:"max_retries"`
	BackoffFactor float64 `json:"backoff_factor"`

	WaitBetweenDownloadsMin float64 `json:"wait_between_downloads_min"`
	WaitBetweenDownloadsMax float64 `json:"wait_between_downloads_max"`

	CertDir          string `json:"cert_dir"`
	CertRotationDays int    `json:"cert_rotation_days"`
	PinMismatchFatal bool   `json:"pin_mismatch_fatal"`

	ExtractRetries      int           `json:"extract_retries"`
	ExtractRetryDelay   time.Duration `json:"-"`
	ExtractRetryDelaySecs float64     `json:"extract_retry_delay_seconds"`

	DBPath               string `json:"db_path"`
	DBTimeoutSeconds     int    `json:"db_timeout_seconds"`
	DBLoteSizeSmall      int    `json:"db_lote_size_small"`
	DBLoteSizeMedium     int    `json:"db_lote_size_medium"`
	DBLoteSizeLarge      int    `json:"db_lote_size_large"`
	DBLoteMaxBytes       int64  `json:"db_lote_max_bytes"`

	CacheDefaultTTLSeconds int `json:"cache_default_ttl_seconds"`
	CacheMaxSize           int `json:"cache_max_size"`

	UserAgent string `json:"user_agent"`
}

// Default returns the built-in defaults, matching the original
// DEFAULT_CONFIG dictionary's values where a key is shared between the two
// systems.
func Default() Config {
	return Config{
		BaseURL:                 "https://bvmf.bmfbovespa.com.br/InstDados/SerHist",
		DataDir:                 "data",
		MaxRetries:              3,
		BackoffFactor:           1.5,
		WaitBetweenDownloadsMin: 3.0,
		WaitBetweenDownloadsMax: 7.0,
		CertDir:                 "certs",
		CertRotationDays:        7,
		PinMismatchFatal:        false,
		ExtractRetries:          3,
		ExtractRetryDelaySecs:   2.0,
		DBPath:                  "fiiquotes.db",
		DBTimeoutSeconds:        30,
		DBLoteSizeSmall:         500,
		DBLoteSizeMedium:        2000,
		DBLoteSizeLarge:         10000,
		DBLoteMaxBytes:          50 * 1024 * 1024,
		CacheDefaultTTLSeconds:  300,
		CacheMaxSize:            1000,
		UserAgent:               "fiiquotes/1.0",
	}
}

// Load reads path, merging its contents over Default(). A missing file is
// not an error — the defaults alone are a valid configuration — but a file
// that exists and fails to parse is fatal at startup, per the pipeline's
// error-handling design (ConfigError).
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.finalize()
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.finalize()
	return cfg, nil
}

func (c *Config) finalize() {
	c.ExtractRetryDelay = time.Duration(c.ExtractRetryDelaySecs * float64(time.Second))
}

// BatchSize chooses a bulk-insert batch size for numRecords rows of
// approximately bytesPerRecord each, grounded on the original's
// optimize_lote_size decorator: few records always use the small batch
// size; otherwise, if a per-record size is known, cap the batch so
// batchSize*bytesPerRecord never exceeds DBLoteMaxBytes (and the batch never
// exceeds DBLoteSizeLarge); otherwise fall back to the medium/large
// thresholds by record count alone.
func (c Config) BatchSize(numRecords int, bytesPerRecord int64) int {
	if numRecords <= c.DBLoteSizeSmall {
		return c.DBLoteSizeSmall
	}
	if bytesPerRecord > 0 {
		perBatch := c.DBLoteMaxBytes / bytesPerRecord
		if perBatch < 1 {
			perBatch = 1
		}
		if perBatch > int64(c.DBLoteSizeLarge) {
			perBatch = int64(c.DBLoteSizeLarge)
		}
		return int(perBatch)
	}
	if numRecords <= c.DBLoteSizeMedium*10 {
		return c.DBLoteSizeMedium
	}
	return c.DBLoteSizeLarge
}
