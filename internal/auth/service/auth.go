package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/solsticehq/solstice/internal/auth/domain"
	"github.com/solsticehq/solstice/internal/auth/idp"
	"github.com/solsticehq/solstice/internal/auth/mail"
	"github.com/solsticehq/solstice/internal/auth/store"
	"github.com/solsticehq/solstice/pkg/cryptox"
	"github.com/solsticehq/solstice/pkg/idx"
)

// Lockout defaults: five straight failures lock the account for two hours.
const (
	DefaultLockThreshold = 5
	DefaultLockDuration  = 2 * time.Hour
)

// AuthService implements the account lifecycle: signup, email
// verification, password login with brute-force lockout, password reset
// and federated login.
type AuthService struct {
	store   store.Store
	tokens  *TokenService
	actions *ActionTokenService
	mailer  mail.Sender
	idp     idp.Verifier
	logger  *slog.Logger

	bcryptCost    int
	lockThreshold int
	lockFor       time.Duration

	now func() time.Time
}

// AuthConfig bundles AuthService construction knobs. Zero values fall back
// to the package defaults.
type AuthConfig struct {
	BcryptCost    int
	LockThreshold int
	LockDuration  time.Duration
}

func NewAuthService(
	st store.Store,
	tokens *TokenService,
	actions *ActionTokenService,
	mailer mail.Sender,
	verifier idp.Verifier,
	logger *slog.Logger,
	cfg AuthConfig,
) *AuthService {
	if cfg.LockThreshold <= 0 {
		cfg.LockThreshold = DefaultLockThreshold
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = DefaultLockDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:         st,
		tokens:        tokens,
		actions:       actions,
		mailer:        mailer,
		idp:           verifier,
		logger:        logger,
		bcryptCost:    cfg.BcryptCost,
		lockThreshold: cfg.LockThreshold,
		lockFor:       cfg.LockDuration,
		now:           time.Now,
	}
}

// SignupInput carries the fields a new account needs.
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Signup creates an unverified account and emails a verification link.
// The account exists even if the email could not be delivered; the user
// can request a resend.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (domain.User, error) {
	now := s.now()

	hash, err := cryptox.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New(),
		Email:        domain.NormalizeEmail(in.Email),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	s.sendVerification(ctx, user)
	return user, nil
}

// Login authenticates email+password and returns a session token pair.
// Check order is fixed: existence, verification, lockout, password. Only a
// password mismatch moves the failure counter.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, domain.TokenPair, error) {
	now := s.now()

	user, err := s.store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email), true)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if !user.IsEmailVerified {
		return domain.User{}, domain.TokenPair{}, ErrEmailNotVerified
	}
	if user.Locked(now) {
		return domain.User{}, domain.TokenPair{}, ErrAccountLocked
	}

	if user.PasswordHash == "" {
		// Federated-only account; no password can ever match and the
		// failure counter stays untouched.
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	if !ok {
		_, lockUntil, err := s.store.Users().RecordLoginFailure(ctx, user.ID, s.lockThreshold, s.lockFor, now)
		if err != nil {
			return domain.User{}, domain.TokenPair{}, err
		}
		if lockUntil != nil && lockUntil.After(now) {
			// The failure that trips the threshold already reports
			// the lockout, not a plain credential error.
			return domain.User{}, domain.TokenPair{}, ErrAccountLocked
		}
		return domain.User{}, domain.TokenPair{}, ErrInvalidCredentials
	}

	if err := s.store.Users().RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// VerifyEmail consumes a verification secret, marks the address confirmed
// and logs the user straight in. The welcome mail is best-effort.
func (s *AuthService) VerifyEmail(ctx context.Context, secret string) (domain.User, domain.TokenPair, error) {
	token, err := s.actions.Consume(ctx, secret, domain.TokenKindEmailVerification)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	user, err := s.store.Users().GetUserByID(ctx, token.UserID, true)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The token was genuine; its owner vanished in the meantime.
			return domain.User{}, domain.TokenPair{}, ErrUserNotFound
		}
		return domain.User{}, domain.TokenPair{}, err
	}
	if user.IsEmailVerified {
		return domain.User{}, domain.TokenPair{}, ErrAlreadyVerified
	}

	now := s.now()
	if err := s.store.Users().MarkEmailVerified(ctx, user.ID, now); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	user.IsEmailVerified = true
	user.EmailVerifiedAt = &now

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, user.DisplayName()); err != nil {
		s.logger.WarnContext(ctx, "welcome mail failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}
	return user, pair, nil
}

// ResendVerification mints a fresh verification link. Unknown emails
// succeed silently; a still-valid outstanding token throttles the request.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email), true)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	pending, err := s.actions.HasValid(ctx, user.ID, domain.TokenKindEmailVerification)
	if err != nil {
		return err
	}
	if pending {
		return ErrVerificationPending
	}

	s.sendVerification(ctx, user)
	return nil
}

// ForgotPassword mints a reset link for the account. Unknown emails get
// the same success response so the endpoint cannot be used to probe for
// accounts. A delivery failure does surface: a user who never receives
// the mail deserves better than a silent success.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email), true)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	secret, err := s.actions.Issue(ctx, user.ID, domain.TokenKindPasswordReset)
	if err != nil {
		return err
	}
	return s.mailer.SendPasswordReset(ctx, user.Email, user.DisplayName(), secret)
}

// ResetPassword consumes a reset secret and installs the new password.
// Every outstanding action token dies with it, and the password change
// timestamp retroactively kills all existing session tokens. The user logs
// in again with the new password; no session is handed out here.
func (s *AuthService) ResetPassword(ctx context.Context, secret, newPassword string) error {
	token, err := s.actions.Consume(ctx, secret, domain.TokenKindPasswordReset)
	if err != nil {
		return err
	}

	user, err := s.store.Users().GetUserByID(ctx, token.UserID, true)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	hash, err := cryptox.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	now := s.now()
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash, now); err != nil {
			return err
		}
		return tx.ActionTokens().DeleteAllUserTokens(ctx, user.ID)
	})
}

// FederatedLogin exchanges a provider ID token for a local session. The
// provider's email assertion substitutes for our own verification flow, so
// accounts created or linked here are verified immediately and any lockout
// state is cleared.
func (s *AuthService) FederatedLogin(ctx context.Context, rawIDToken string) (domain.User, domain.TokenPair, error) {
	identity, err := s.idp.Exchange(ctx, rawIDToken)
	if err != nil {
		if errors.Is(err, idp.ErrInvalidToken) {
			return domain.User{}, domain.TokenPair{}, ErrInvalidProviderToken
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	user, err := s.resolveFederatedUser(ctx, identity)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	now := s.now()
	if err := s.store.Users().RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// resolveFederatedUser finds the account for a provider identity: by
// subject id first, then by email (linking the subject), finally creating
// a fresh account with an unknowable placeholder password.
func (s *AuthService) resolveFederatedUser(ctx context.Context, identity idp.Identity) (domain.User, error) {
	user, err := s.store.Users().GetUserByFederatedID(ctx, identity.Subject, true)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	now := s.now()
	email := domain.NormalizeEmail(identity.Email)

	user, err = s.store.Users().GetUserByEmail(ctx, email, true)
	if err == nil {
		if err := s.store.Users().LinkFederatedIdentity(ctx, user.ID, identity.Subject, now); err != nil {
			return domain.User{}, err
		}
		user.FederatedID = identity.Subject
		user.IsEmailVerified = true
		if user.EmailVerifiedAt == nil {
			user.EmailVerifiedAt = &now
		}
		user.LockUntil = nil
		user.LoginAttempts = 0
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	// Brand-new account. The placeholder password is random and discarded,
	// so password login stays impossible until the user sets one via reset.
	placeholder, err := cryptox.NewPlaceholderPassword()
	if err != nil {
		return domain.User{}, err
	}
	hash, err := cryptox.HashPassword(placeholder, s.bcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	user = domain.User{
		ID:              idx.New(),
		Email:           email,
		FirstName:       identity.GivenName,
		LastName:        identity.FamilyName,
		PasswordHash:    hash,
		IsEmailVerified: true,
		EmailVerifiedAt: &now,
		FederatedID:     identity.Subject,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	return user, nil
}

// sendVerification mints and delivers a verification link, logging instead
// of failing when the mail cannot go out.
func (s *AuthService) sendVerification(ctx context.Context, user domain.User) {
	secret, err := s.actions.Issue(ctx, user.ID, domain.TokenKindEmailVerification)
	if err != nil {
		s.logger.ErrorContext(ctx, "issue verification token failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	if err := s.mailer.SendVerification(ctx, user.Email, user.DisplayName(), secret); err != nil {
		s.logger.WarnContext(ctx, "verification mail failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}
}
