package session

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies a token in logs and audit records without
// revealing it: the first 16 hex characters of its SHA-256.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
