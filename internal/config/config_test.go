package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxRetries != Default().MaxRetries {
		t.Fatalf("expected default MaxRetries, got %d", cfg.MaxRetries)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"max_retries": 9, "base_url": "https://example.test"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxRetries != 9 {
		t.Fatalf("MaxRetries = %d, want 9", cfg.MaxRetries)
	}
	if cfg.BaseURL != "https://example.test" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	// Untouched keys keep their defaults.
	if cfg.BackoffFactor != Default().BackoffFactor {
		t.Fatalf("expected untouched key to keep its default")
	}
}

func TestLoadMalformedJSONIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestBatchSizeSmallVolume(t *testing.T) {
	c := Default()
	if got := c.BatchSize(10, 0); got != c.DBLoteSizeSmall {
		t.Fatalf("BatchSize = %d, want %d", got, c.DBLoteSizeSmall)
	}
}

func TestBatchSizeCapsOnPayloadBytes(t *testing.T) {
	c := Default()
	c.DBLoteMaxBytes = 1000
	got := c.BatchSize(100000, 100) // 100 bytes/record -> 10 rows per batch
	if got != 10 {
		t.Fatalf("BatchSize = %d, want 10", got)
	}
}
