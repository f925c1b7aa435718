package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solsticehq/solstice/internal/auth/domain"
	"github.com/solsticehq/solstice/internal/auth/store"
	"github.com/solsticehq/solstice/pkg/cryptox"
	"github.com/solsticehq/solstice/pkg/idx"
)

// Default lifetimes for the email-link secrets.
const (
	DefaultVerificationTokenTTL  = 24 * time.Hour
	DefaultPasswordResetTokenTTL = 1 * time.Hour
)

// ActionTokenService mints and consumes the single-use secrets behind
// email verification and password reset links. Cleartext secrets exist
// only in transit; the store holds SHA-256 fingerprints.
type ActionTokenService struct {
	store store.Store
	ttls  map[domain.TokenKind]time.Duration
	now   func() time.Time
}

func NewActionTokenService(st store.Store, verificationTTL, resetTTL time.Duration) *ActionTokenService {
	if verificationTTL <= 0 {
		verificationTTL = DefaultVerificationTokenTTL
	}
	if resetTTL <= 0 {
		resetTTL = DefaultPasswordResetTokenTTL
	}
	return &ActionTokenService{
		store: st,
		ttls: map[domain.TokenKind]time.Duration{
			domain.TokenKindEmailVerification: verificationTTL,
			domain.TokenKindPasswordReset:     resetTTL,
		},
		now: time.Now,
	}
}

// Issue mints a fresh secret for the user and kind, replacing any earlier
// tokens of the same kind so at most one is valid at a time. Returns the
// cleartext secret for out-of-band delivery.
func (s *ActionTokenService) Issue(ctx context.Context, userID string, kind domain.TokenKind) (string, error) {
	ttl, ok := s.ttls[kind]
	if !ok {
		return "", fmt.Errorf("service: unknown token kind %q", kind)
	}

	secret, err := cryptox.NewActionSecret()
	if err != nil {
		return "", err
	}

	now := s.now()
	token := domain.ActionToken{
		ID:        idx.New(),
		UserID:    userID,
		TokenHash: cryptox.HashActionSecret(secret),
		Kind:      kind,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.ActionTokens().DeleteTokensByKind(ctx, userID, kind); err != nil {
			return err
		}
		return tx.ActionTokens().CreateToken(ctx, token)
	})
	if err != nil {
		return "", fmt.Errorf("service: issue %s token: %w", kind, err)
	}
	return secret, nil
}

// Consume validates a cleartext secret and deletes the matching token so it
// can never be used twice. Unknown, expired and already-consumed secrets all
// surface as ErrInvalidActionToken; an expired row is deleted on the way out.
func (s *ActionTokenService) Consume(ctx context.Context, secret string, kind domain.TokenKind) (domain.ActionToken, error) {
	hash := cryptox.HashActionSecret(secret)

	var token domain.ActionToken
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		token, err = tx.ActionTokens().GetTokenByHash(ctx, hash, kind)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidActionToken
			}
			return err
		}
		return tx.ActionTokens().DeleteToken(ctx, token.ID)
	})
	if err != nil {
		return domain.ActionToken{}, err
	}
	// The delete above is committed either way: an expired token presented
	// once is reaped on the spot, not left for housekeeping.
	if token.Expired(s.now()) {
		return domain.ActionToken{}, ErrInvalidActionToken
	}
	return token, nil
}

// HasValid reports whether the user still holds an unexpired token of the
// kind, without consuming anything. Used to throttle resend requests.
func (s *ActionTokenService) HasValid(ctx context.Context, userID string, kind domain.TokenKind) (bool, error) {
	return s.store.ActionTokens().HasValidToken(ctx, userID, kind, s.now())
}
