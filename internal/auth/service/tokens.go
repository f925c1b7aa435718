package service

import (
	"context"
	"errors"
	"time"

	"github.com/solsticehq/solstice/internal/auth/domain"
	"github.com/solsticehq/solstice/internal/auth/store"
	"github.com/solsticehq/solstice/pkg/jwtx"
)

// TokenService layers account state on top of raw JWT verification: a
// token that passes signature and expiry checks is still rejected when
// its user is gone, soft-deleted or changed their password after the
// token was minted.
type TokenService struct {
	jwt   *jwtx.Service
	store store.Store
	now   func() time.Time
}

func NewTokenService(jwt *jwtx.Service, st store.Store) *TokenService {
	return &TokenService{jwt: jwt, store: st, now: time.Now}
}

// IssuePair mints a fresh access+refresh pair for the user.
func (s *TokenService) IssuePair(userID string) (domain.TokenPair, error) {
	access, refresh, err := s.jwt.SignPair(userID, s.now())
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until its own expiry
// or until a password change invalidates it.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.VerifyRefresh(refreshToken)
	if err != nil {
		return "", ErrSessionInvalid
	}

	user, err := s.userForClaims(ctx, claims)
	if err != nil {
		return "", err
	}
	if !user.IsEmailVerified {
		return "", ErrSessionInvalid
	}

	access, err := s.jwt.SignAccess(user.ID, s.now())
	if err != nil {
		return "", err
	}
	return access, nil
}

// Authenticate resolves an access token to its live user. This is the
// request-path check the HTTP bearer middleware runs.
func (s *TokenService) Authenticate(ctx context.Context, accessToken string) (domain.User, error) {
	claims, err := s.jwt.VerifyAccess(accessToken)
	if err != nil {
		return domain.User{}, ErrSessionInvalid
	}
	return s.userForClaims(ctx, claims)
}

// userForClaims loads the subject and applies the retroactive revocation
// rule: a password change kills every session token minted before it, both
// access and refresh.
func (s *TokenService) userForClaims(ctx context.Context, claims jwtx.Claims) (domain.User, error) {
	user, err := s.store.Users().GetUserByID(ctx, claims.Subject, true)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrSessionInvalid
		}
		return domain.User{}, err
	}
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil &&
		claims.IssuedAt.Time.Before(*user.PasswordChangedAt) {
		return domain.User{}, ErrSessionInvalid
	}
	return user, nil
}
