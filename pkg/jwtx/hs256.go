package jwtx

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failure taxonomy. Callers collapse all of these to an
// Unauthorized-class response but keep the distinction for logs.
var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrWrongType  = errors.New("jwtx: unexpected token type")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
	ErrAudience   = errors.New("jwtx: audience mismatch")
)

// Service signs and verifies session tokens. The zero value is unusable;
// populate all fields at construction.
type Service struct {
	Issuer        string
	Audience      string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// SignAccess mints a signed access token for the given user id.
func (s *Service) SignAccess(userID string, now time.Time) (string, error) {
	return s.sign(userID, TypeAccess, s.AccessSecret, s.AccessTTL, now)
}

// SignRefresh mints a signed refresh token for the given user id.
func (s *Service) SignRefresh(userID string, now time.Time) (string, error) {
	return s.sign(userID, TypeRefresh, s.RefreshSecret, s.RefreshTTL, now)
}

// SignPair mints an access+refresh pair sharing the same issue instant.
func (s *Service) SignPair(userID string, now time.Time) (access, refresh string, err error) {
	access, err = s.SignAccess(userID, now)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.SignRefresh(userID, now)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// VerifyAccess validates signature, expiry, issuer, audience and that the
// token is access-typed.
func (s *Service) VerifyAccess(token string) (Claims, error) {
	return s.verify(token, TypeAccess, s.AccessSecret)
}

// VerifyRefresh validates signature, expiry, issuer, audience and that the
// token is refresh-typed.
func (s *Service) VerifyRefresh(token string) (Claims, error) {
	return s.verify(token, TypeRefresh, s.RefreshSecret)
}

func (s *Service) sign(userID string, typ TokenType, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := newSessionClaims(userID, typ, ttl, s.Issuer, []string{s.Audience}, now)
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *Service) verify(token string, want TokenType, secret []byte) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithAudience(s.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	if claims.TokenType != want {
		return Claims{}, ErrWrongType
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudience
	default:
		return ErrMalformed
	}
}

// ExtractBearer parses an Authorization header following the
// "Bearer <token>" convention. Malformed headers yield "", not an error.
func ExtractBearer(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	token := strings.TrimSpace(header[len(prefix):])
	if strings.ContainsAny(token, " \t") {
		return ""
	}
	return token
}
