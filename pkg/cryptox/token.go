package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ActionSecretBytes is the entropy of an action secret before encoding.
// 32 bytes hex-encodes to the 64-character token carried in email links.
const ActionSecretBytes = 32

// NewActionSecret creates a cryptographically random single-use secret,
// returned as a 64-character lowercase hex string. The caller delivers it
// out-of-band; only its hash is ever persisted.
func NewActionSecret() (string, error) {
	buf := make([]byte, ActionSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate action secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashActionSecret returns the deterministic SHA-256 fingerprint of an
// action secret, hex-encoded. Action secrets are already high-entropy random
// values, so a fast hash is sufficient; the slow adaptive hash is reserved
// for user-chosen passwords.
func HashActionSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
