package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when callers pass a cost <= 0.
// Raising it makes every hash and verification proportionally slower.
const DefaultCost = 12

// HashPassword hashes a plaintext password with bcrypt. The salt and cost are
// embedded in the returned hash string.
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("cryptox: hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a bcrypt hash.
// A mismatch returns (false, nil); an error is reserved for hashes that
// cannot be processed at all (corrupt or truncated records).
func VerifyPassword(password, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("cryptox: verify password: %w", err)
}

// NewPlaceholderPassword returns a random high-entropy password used to fill
// the password slot of accounts created through a federated identity
// provider. The value is hashed and then discarded; nobody ever knows it.
func NewPlaceholderPassword() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: generate placeholder password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
