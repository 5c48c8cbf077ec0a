package fetch

import (
	"bufio"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// PinRecord is one entry of the certificate pin-history file: grounded on
// downloader.py's registrar_impressao_digital CSV history, rendered here as
// a JSON-lines ledger (one record per line) per the teacher's preference for
// line-delimited, append-friendly persistence (security/persist.go).
type PinRecord struct {
	Host        string    `json:"host"`
	Fingerprint string    `json:"fingerprint"`
	ObservedAt  time.Time `json:"observed_at"`
	Mismatch    bool      `json:"mismatch"`
}

// PinStore tracks the pinned SHA-256 leaf certificate fingerprint per host
// and appends first pins and mismatches (not repeated matches) to a
// history file on disk.
type PinStore struct {
	path string
	pins map[string]PinRecord
}

// OpenPinStore loads path's history (if it exists) into memory, mirroring
// the original's behaviour of loading the CSV history on manager startup.
func OpenPinStore(path string) (*PinStore, error) {
	s := &PinStore{path: path, pins: make(map[string]PinRecord)}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening pin store %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec PinRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue // a corrupted history line is not fatal; skip it
		}
		if existing, ok := s.pins[rec.Host]; !ok || rec.ObservedAt.After(existing.ObservedAt) {
			s.pins[rec.Host] = rec
		}
	}
	return s, scanner.Err()
}

// Fingerprint computes the SHA-256 fingerprint of the server's leaf
// certificate from a completed TLS connection state.
func Fingerprint(state tls.ConnectionState) (string, error) {
	if len(state.PeerCertificates) == 0 {
		return "", fmt.Errorf("no peer certificates presented")
	}
	sum := sha256.Sum256(state.PeerCertificates[0].Raw)
	return fmt.Sprintf("%x", sum), nil
}

// Check compares fingerprint against the pinned value for host. On first
// connection it pins, records the observation, and returns (true, false,
// nil). On a match it returns (true, false, nil) without writing. On a
// mismatch it persists the mismatch observation to the history file; if the
// current pin is at least rotationAllowedAfter old, the new fingerprint
// becomes the pin in this same call and Check returns (false, true, nil),
// otherwise it returns (false, false, nil).
func (s *PinStore) Check(host, fingerprint string, rotationAllowedAfter time.Duration) (matched bool, rotated bool, err error) {
	existing, known := s.pins[host]
	now := time.Now().UTC()

	if !known {
		if err := s.append(PinRecord{Host: host, Fingerprint: fingerprint, ObservedAt: now}); err != nil {
			return false, false, err
		}
		s.pins[host] = PinRecord{Host: host, Fingerprint: fingerprint, ObservedAt: now}
		return true, false, nil
	}

	if existing.Fingerprint == fingerprint {
		return true, false, nil
	}

	mismatchRecord := PinRecord{Host: host, Fingerprint: fingerprint, ObservedAt: now, Mismatch: true}
	if err := s.append(mismatchRecord); err != nil {
		return false, false, err
	}

	if now.Sub(existing.ObservedAt) >= rotationAllowedAfter {
		s.pins[host] = PinRecord{Host: host, Fingerprint: fingerprint, ObservedAt: now}
		return false, true, nil
	}
	return false, false, nil
}

func (s *PinStore) append(rec PinRecord) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("appending pin record: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}
