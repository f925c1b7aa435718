package domain

import "time"

// TokenKind discriminates the single-use secrets delivered by email.
type TokenKind string

const (
	TokenKindEmailVerification TokenKind = "email_verification"
	TokenKindPasswordReset     TokenKind = "password_reset"
)

// ActionToken is the stored form of a single-use, expiring secret. Only the
// SHA-256 fingerprint of the secret is persisted; the cleartext exists
// solely in the email link.
type ActionToken struct {
	ID        string
	UserID    string
	TokenHash string
	Kind      TokenKind
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry instant.
func (t ActionToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenPair is what a successful login, verification or federated exchange
// returns: a short-lived access token and a longer-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
}
