package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// MinKeyBytes is the minimum secret length accepted in production.
const MinKeyBytes = 32

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// Digester derives storage keys from opaque identifiers.
type Digester struct {
	key []byte
}

// NewDigester returns a Digester. An empty key selects plain SHA-256.
func NewDigester(key []byte) Digester {
	return Digester{key: append([]byte(nil), key...)}
}

// Digest returns the 64-char hex storage key for s.
func (d Digester) Digest(s string) string {
	if len(d.key) == 0 {
		return HashSHA256Hex(s)
	}
	return HashHMACSHA256Hex(s, d.key)
}

// NewOpaque returns nBytes of crypto/rand entropy encoded as unpadded base64url.
func NewOpaque(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RandomKey returns n random bytes for use as a process-local secret.
func RandomKey(n int) ([]byte, error) {
	if n <= 0 {
		n = MinKeyBytes
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("token: random key: %w", err)
	}
	return b, nil
}

// CheckKey enforces a minimum byte length on a configured secret.
// Bytes, not runes, are counted because the key is used raw.
func CheckKey(key []byte, minBytes int) error {
	if len(key) == 0 {
		return ErrKeyMissing
	}
	if minBytes > 0 && len(key) < minBytes {
		return ErrKeyTooShort
	}
	return nil
}
