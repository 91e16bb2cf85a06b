// Package fingerprint establishes certificate identity: a deterministic
// SHA-256 digest over the artifact's canonical byte content. Identical bytes
// always yield the identical digest; any change yields a different one.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// HexLen is the length of an encoded fingerprint (SHA-256, lowercase hex).
const HexLen = 64

var ErrMalformed = errors.New("malformed fingerprint")

// Compute returns the fingerprint of the artifact content.
func Compute(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Normalize validates a caller-supplied fingerprint string and returns its
// canonical lowercase form.
func Normalize(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != HexLen {
		return "", ErrMalformed
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", ErrMalformed
	}
	return s, nil
}
