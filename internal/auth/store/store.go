package store

import (
	"context"
	"errors"
	"time"

	"github.com/solsticehq/solstice/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy and let tests target
// one surface at a time.
type Store interface {
	Users() Users
	ActionTokens() ActionTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and
	// rolling back on error. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential record repository. Every read takes an explicit
// activeOnly flag: authentication paths pass true so soft-deleted accounts
// are invisible to them, while administrative callers can pass false. The
// exclusion is never an implicit query hook.
type Users interface {
	// CreateUser inserts a new user (id is provided by the app via ULID).
	// A duplicate email or federated id surfaces as ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string, activeOnly bool) (domain.User, error)

	// GetUserByEmail performs a case-insensitive lookup on the normalized
	// email column.
	GetUserByEmail(ctx context.Context, email string, activeOnly bool) (domain.User, error)

	GetUserByFederatedID(ctx context.Context, federatedID string, activeOnly bool) (domain.User, error)

	// UpdateProfile mutates the name fields and bumps updated_at.
	UpdateProfile(ctx context.Context, userID, firstName, lastName string) error

	// UpdatePasswordHash replaces the password hash and stamps
	// password_changed_at, which retroactively invalidates session tokens
	// issued before that instant.
	UpdatePasswordHash(ctx context.Context, userID, newHash string, changedAt time.Time) error

	// MarkEmailVerified sets the verified flag and timestamp exactly once.
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error

	// LinkFederatedIdentity attaches the provider subject id, force-marks
	// the email verified (provider-asserted) and clears any lockout state.
	LinkFederatedIdentity(ctx context.Context, userID, federatedID string, at time.Time) error

	// RecordLoginFailure atomically increments the attempt counter and
	// trips the time-boxed lock when the counter reaches threshold. A lock
	// that has already expired resets the counter to 1 (fresh window). Two
	// concurrent failures must not both observe the same counter value;
	// the driver performs the whole step in a single statement.
	RecordLoginFailure(ctx context.Context, userID string, threshold int, lockFor time.Duration, now time.Time) (attempts int, lockUntil *time.Time, err error)

	// RecordLoginSuccess resets the attempt counter, clears any lock and
	// stamps last_login_at.
	RecordLoginSuccess(ctx context.Context, userID string, at time.Time) error

	// SoftDeleteUser flips is_active off; the row remains for audit.
	SoftDeleteUser(ctx context.Context, userID string) error
}

// ActionTokens stores the hashed single-use secrets backing email
// verification and password reset links.
type ActionTokens interface {
	CreateToken(ctx context.Context, t domain.ActionToken) error

	// GetTokenByHash returns a token by its fingerprint and kind,
	// regardless of expiry; the service layer decides what expiry means.
	GetTokenByHash(ctx context.Context, hash string, kind domain.TokenKind) (domain.ActionToken, error)

	DeleteToken(ctx context.Context, id string) error

	// DeleteTokensByKind removes every token of one kind for a user,
	// enforcing "at most one valid token per kind" at issuance.
	DeleteTokensByKind(ctx context.Context, userID string, kind domain.TokenKind) error

	// DeleteAllUserTokens removes every token for a user, any kind.
	DeleteAllUserTokens(ctx context.Context, userID string) error

	// HasValidToken reports whether an unexpired token of the kind exists;
	// used to throttle resend requests without consuming anything.
	HasValidToken(ctx context.Context, userID string, kind domain.TokenKind, now time.Time) (bool, error)

	// PurgeStaleTokens is housekeeping: deletes tokens that are expired or
	// older than the retention window.
	PurgeStaleTokens(ctx context.Context, now time.Time, retention time.Duration) error
}
