package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSelector = "reanchor/selector/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SelectorID computes a content-addressed ID for a selector.
// Selectors that differ only in Unicode normalization share an ID.
func SelectorID(s Selector) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	canonical, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("SelectorID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSelector, canonical), nil
}

// Fingerprint returns the BLAKE3 digest of a flattened document text.
// Pass reports carry it so repeated passes over unchanged text are
// recognisable in logs and audit records.
func Fingerprint(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
