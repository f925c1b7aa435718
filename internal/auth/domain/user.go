package domain

import (
	"strings"
	"time"
)

// User is the credential record: identity, hashed password, verification
// and lockout state. The password hash never leaves the store/service
// layers.
type User struct {
	ID        string
	Email     string // normalized: trimmed, lowercase
	FirstName string
	LastName  string

	PasswordHash      string // empty for federated accounts that never set one
	IsEmailVerified   bool
	EmailVerifiedAt   *time.Time
	PasswordChangedAt *time.Time // session tokens issued before this instant are dead
	LastLoginAt       *time.Time

	LoginAttempts int
	LockUntil     *time.Time

	FederatedID string // external identity provider subject id (Google)

	IsActive  bool // soft delete flag
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Locked reports whether the account is currently locked out. A lock
// timestamp in the past is stale and counts as unlocked.
func (u User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// CanAuthenticate reports whether any authentication path exists for the
// account. A user with neither a password hash nor a federated identity
// cannot log in at all.
func (u User) CanAuthenticate() bool {
	return u.PasswordHash != "" || u.FederatedID != ""
}

// DisplayName computes the human-readable name, falling back to the email
// address when no name parts are set.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Email
	}
	return name
}

// NormalizeEmail canonicalizes an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
