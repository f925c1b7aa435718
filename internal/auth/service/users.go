package service

import (
	"context"
	"errors"
	"time"

	"github.com/solsticehq/solstice/internal/auth/domain"
	"github.com/solsticehq/solstice/internal/auth/store"
	"github.com/solsticehq/solstice/pkg/cryptox"
)

// UserService covers the authenticated self-service surface: profile
// reads and updates, password changes and account deletion.
type UserService struct {
	store   store.Store
	tokens  *TokenService
	actions *ActionTokenService

	bcryptCost int
	now        func() time.Time
}

func NewUserService(st store.Store, tokens *TokenService, actions *ActionTokenService, bcryptCost int) *UserService {
	return &UserService{
		store:      st,
		tokens:     tokens,
		actions:    actions,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// GetUser returns the active user or ErrUserNotFound.
func (s *UserService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.store.Users().GetUserByID(ctx, userID, true)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateProfile changes the name fields and returns the updated record.
func (s *UserService) UpdateProfile(ctx context.Context, userID, firstName, lastName string) (domain.User, error) {
	if err := s.store.Users().UpdateProfile(ctx, userID, firstName, lastName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return s.GetUser(ctx, userID)
}

// UpdatePassword verifies the current password, installs the new one and
// returns a fresh token pair. The change timestamp retroactively kills
// every other session; only the pair minted here survives.
func (s *UserService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) (domain.TokenPair, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if user.PasswordHash == "" {
		// Federated-only accounts set their first password via the
		// reset flow, which proves email control.
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	ok, err := cryptox.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !ok {
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return domain.TokenPair{}, err
	}

	now := s.now()
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash, now); err != nil {
			return err
		}
		return tx.ActionTokens().DeleteAllUserTokens(ctx, userID)
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	return s.tokens.IssuePair(userID)
}

// DeleteAccount soft-deletes the user and discards their action tokens.
// Session tokens die on their next use because the user lookup excludes
// inactive accounts.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SoftDeleteUser(ctx, userID); err != nil {
			return err
		}
		return tx.ActionTokens().DeleteAllUserTokens(ctx, userID)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
