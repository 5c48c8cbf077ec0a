// Package fetch acquires exchange archives over HTTPS with retry,
// certificate pinning, and post-download integrity verification. Grounded
// on original_source/fii_utils/downloader.py for behavior (pinning,
// 404-as-permanent, politeness delay, retry/backoff) and on the teacher's
// httputil.go for the shape of the HTTP plumbing — net/http + crypto/tls
// replaces the original's curl subprocess, the idiomatic Go equivalent.
package fetch

import (
	"archive/zip"
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/cotahist/fiiquotes/internal/obslog"
)

// Result is the outcome of one Fetch call.
type Result struct {
	OK            bool
	PermanentFail *PermanentError
	TransientFail *TransientError
}

// Options configures a Downloader, mirroring spec.md §6.4's retry/pinning
// keys.
type Options struct {
	BaseURL          string
	MaxRetries       int
	BackoffFactor    float64
	WaitMin, WaitMax time.Duration
	CertRotation     time.Duration
	PinMismatchFatal bool
	MinArchiveBytes  int64
	UserAgent        string
}

// Downloader fetches archives with retry, pinning, and post-verification.
type Downloader struct {
	opts   Options
	client *http.Client
	pins   *PinStore
	log    *obslog.Logger
	rand   func() float64
	sleep  func(time.Duration)
}

// New constructs a Downloader. pins may be nil to disable certificate
// pinning (e.g. in tests against a plain HTTP test server).
func New(opts Options, pins *PinStore, logger *obslog.Logger) *Downloader {
	if logger == nil {
		logger = obslog.New()
	}
	return &Downloader{
		opts:   opts,
		client: &http.Client{Timeout: 60 * time.Second},
		pins:   pins,
		log:    logger,
		rand:   rand.Float64,
		sleep:  time.Sleep,
	}
}

// Fetch downloads archiveName to destination, applying the pre-check,
// retry, pinning, and post-verification behavior spec.md §4.2 describes.
func (d *Downloader) Fetch(archiveName, destination string) Result {
	url := d.opts.BaseURL + "/" + archiveName

	if permanent := d.preCheck(url); permanent != nil {
		return Result{PermanentFail: permanent}
	}

	var lastTransient *TransientError
	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(d.opts.BackoffFactor, float64(attempt))) * time.Second
			d.sleep(delay)
		}

		if err := d.attempt(url, destination); err != nil {
			if perm, ok := err.(*PermanentError); ok {
				return Result{PermanentFail: perm}
			}
			if trans, ok := err.(*TransientError); ok {
				lastTransient = trans
				d.log.Warn(obslog.Download, "transient failure attempt=%d archive=%s err=%v", attempt, archiveName, trans.Err)
				continue
			}
			lastTransient = &TransientError{Err: err}
			continue
		}
		return Result{OK: true}
	}
	return Result{TransientFail: lastTransient}
}

// preCheck issues a HEAD request; a 404 is treated as "not yet published",
// a permanent failure distinct from a transient one so the caller retries
// on a later day, not a later second.
func (d *Downloader) preCheck(url string) *PermanentError {
	resp, err := d.client.Head(url)
	if err != nil {
		return nil // network error on HEAD is not conclusive; let the GET attempt run
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return &PermanentError{Tag: NotYetPublished, Err: fmt.Errorf("HTTP 404 for %s", url)}
	}
	return nil
}

func (d *Downloader) attempt(url, destination string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return &TransientError{Err: err}
	}
	if d.opts.UserAgent != "" {
		req.Header.Set("User-Agent", d.opts.UserAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &PermanentError{Tag: NotYetPublished, Err: fmt.Errorf("HTTP 404 for %s", url)}
	}
	if resp.StatusCode >= 500 {
		return &TransientError{Err: fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)}
	}
	if resp.StatusCode != http.StatusOK {
		return &TransientError{Err: fmt.Errorf("unexpected HTTP %d for %s", resp.StatusCode, url)}
	}

	if d.pins != nil && resp.TLS != nil {
		if err := d.checkPin(req.URL.Host, *resp.TLS); err != nil {
			return err
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: err}
	}

	if err := verifyZip(body, d.opts.MinArchiveBytes, d.log); err != nil {
		return &PermanentError{Tag: IntegrityFailure, Err: err}
	}

	if err := os.WriteFile(destination, body, 0o644); err != nil {
		return &TransientError{Err: err}
	}
	return nil
}

// checkPin verifies the connection's leaf certificate against the pinned
// fingerprint for host, pinning on first contact and accepting rotation
// only after CertRotation has elapsed since the previous pin.
func (d *Downloader) checkPin(host string, state tls.ConnectionState) error {
	fingerprint, err := Fingerprint(state)
	if err != nil {
		return &TransientError{Err: err}
	}
	matched, rotated, err := d.pins.Check(host, fingerprint, d.opts.CertRotation)
	if err != nil {
		return &TransientError{Err: err}
	}
	if matched || rotated {
		return nil
	}
	if d.opts.PinMismatchFatal {
		return &PermanentError{Tag: IntegrityFailure, Err: fmt.Errorf("certificate pin mismatch for %s", host)}
	}
	d.log.Warn(obslog.Download, "certificate pin mismatch for %s, continuing (pin_mismatch_fatal=false)", host)
	return nil
}

// PoliteWait sleeps for a random duration in [WaitMin, WaitMax], the
// politeness delay between successive downloads.
func (d *Downloader) PoliteWait() {
	if d.opts.WaitMax <= d.opts.WaitMin {
		d.sleep(d.opts.WaitMin)
		return
	}
	span := d.opts.WaitMax - d.opts.WaitMin
	d.sleep(d.opts.WaitMin + time.Duration(d.rand()*float64(span)))
}

// verifyZip checks the downloaded bytes are a valid ZIP with at least one
// member and at least minBytes in size (a warning, not a failure, below
// threshold).
func verifyZip(data []byte, minBytes int64, logger *obslog.Logger) error {
	if int64(len(data)) < minBytes {
		logger.Warn(obslog.Download, "archive smaller than expected: %d bytes < %d", len(data), minBytes)
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("invalid zip: %w", err)
	}
	if len(r.File) == 0 {
		return fmt.Errorf("zip has no members")
	}
	return nil
}
