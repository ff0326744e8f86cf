// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256String computes the SHA256 hash of a string.
func SHA256String(s string) string {
	return SHA256([]byte(s))
}

// SHA256Short returns the first n characters of a SHA256 hash.
func SHA256Short(data []byte, n int) string {
	h := SHA256(data)
	if n > len(h) {
		return h
	}
	return h[:n]
}

// Fingerprint computes a deterministic fingerprint of any JSON-serializable
// value. Used to record which gold and prediction inputs produced a report.
func Fingerprint(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling for fingerprint: %w", err)
	}
	return SHA256Short(data, 16), nil
}

// RunID generates a run identifier from the input fingerprints and a timestamp.
func RunID(goldFingerprint, predFingerprint string, at time.Time) string {
	data := []byte(goldFingerprint + ":" + predFingerprint + ":" + at.UTC().Format(time.RFC3339Nano))
	return "run-" + SHA256Short(data, 12)
}
