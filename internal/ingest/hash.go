package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// hashFile computes the SHA-256 digest of path's contents, streaming in
// fixed blocks so large archives never need to be held in memory at once —
// the same block-read loop db_utils.py's calcular_hash_arquivo uses, with
// SHA-256 in place of MD5 for a content ledger that may outlive the
// exchange's own integrity guarantees.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
