// Package jwtx mints and verifies the signed session tokens issued after a
// successful authentication. Access and refresh tokens are HS256 JWTs signed
// with separate secrets so a leak of one signing key never compromises the
// other category.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Access tokens authorize API requests and should be
// short-lived in hardened deployments; refresh tokens exist solely to mint
// new access tokens.
const (
	DefaultAccessTokenTTL  = 7 * 24 * time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenType discriminates the two session token categories. Verification
// requires the claimed type to match the entry point used, so an access
// token can never be replayed where a refresh token is expected.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Claims are the session token claims. Identity only: the subject is the
// user id and the type tags the token category.
type Claims struct {
	jwt.RegisteredClaims

	TokenType TokenType `json:"typ"`
}

// newSessionClaims builds minimally-correct claims for a session token.
func newSessionClaims(
	subject string,
	typ TokenType,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		TokenType: typ,
	}
}

// newJTI returns a URL-safe random identifier for the "jti" claim.
func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
