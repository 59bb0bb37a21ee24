package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// MinHMACKeyBytes is the smallest accepted HMAC-SHA256 key.
const MinHMACKeyBytes = 32

// HashSHA256Hex returns the hex SHA-256 digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns the hex HMAC-SHA256 of s under key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// Digest hashes s with HMAC when key is set and plain SHA-256 otherwise.
func Digest(s string, key []byte) string {
	if len(key) == 0 {
		return HashSHA256Hex(s)
	}
	return HashHMACSHA256Hex(s, key)
}

// HMACKey trims raw and enforces a minimum length in bytes, not runes, since
// the key is consumed as raw bytes.
func HMACKey(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrKeyMissing
	}
	if minBytes > 0 && len(raw) < minBytes {
		return nil, ErrKeyTooShort
	}
	return []byte(raw), nil
}
