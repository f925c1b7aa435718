package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/solsticehq/solstice/internal/auth/domain"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, email, first_name, last_name, password_hash,
	is_email_verified, email_verified_at, password_changed_at, last_login_at,
	login_attempts, lock_until, federated_id, is_active, created_at, updated_at`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		u.FirstName,
		u.LastName,
		toNullString(u.PasswordHash),
		u.IsEmailVerified,
		toNullUnix(u.EmailVerifiedAt),
		toNullUnix(u.PasswordChangedAt),
		toNullUnix(u.LastLoginAt),
		u.LoginAttempts,
		toNullUnix(u.LockUntil),
		toNullString(u.FederatedID),
		u.IsActive,
		toUnix(u.CreatedAt),
		toUnix(u.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string, activeOnly bool) (domain.User, error) {
	return r.getUser(ctx, `id = ?`, id, activeOnly)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string, activeOnly bool) (domain.User, error) {
	return r.getUser(ctx, `email = ?`, email, activeOnly)
}

func (r *usersRepo) GetUserByFederatedID(ctx context.Context, federatedID string, activeOnly bool) (domain.User, error) {
	return r.getUser(ctx, `federated_id = ?`, federatedID, activeOnly)
}

func (r *usersRepo) getUser(ctx context.Context, where, arg string, activeOnly bool) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	if activeOnly {
		query += ` AND is_active = 1`
	}
	return scanUser(r.q.QueryRowContext(ctx, query, arg))
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID, firstName, lastName string) error {
	return r.exec(ctx, `
		UPDATE users SET first_name = ?, last_name = ?, updated_at = ?
		WHERE id = ?`,
		firstName, lastName, toUnix(time.Now()), userID)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string, changedAt time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET password_hash = ?, password_changed_at = ?, updated_at = ?
		WHERE id = ?`,
		newHash, toUnix(changedAt), toUnix(changedAt), userID)
}

func (r *usersRepo) MarkEmailVerified(ctx context.Context, userID string, at time.Time) error {
	// email_verified_at is set exactly once; COALESCE keeps the first stamp.
	return r.exec(ctx, `
		UPDATE users SET
			is_email_verified = 1,
			email_verified_at = COALESCE(email_verified_at, ?),
			updated_at = ?
		WHERE id = ?`,
		toUnix(at), toUnix(at), userID)
}

func (r *usersRepo) LinkFederatedIdentity(ctx context.Context, userID, federatedID string, at time.Time) error {
	err := r.exec(ctx, `
		UPDATE users SET
			federated_id = ?,
			is_email_verified = 1,
			email_verified_at = COALESCE(email_verified_at, ?),
			login_attempts = 0,
			lock_until = NULL,
			updated_at = ?
		WHERE id = ?`,
		federatedID, toUnix(at), toUnix(at), userID)
	return mapConstraint(err)
}

// RecordLoginFailure performs the whole increment-and-maybe-lock step in one
// statement so concurrent failures for the same user serialize in the
// database instead of racing in application code. A lock already expired at
// the failure instant starts a fresh window (counter resets to 1); an active
// lock is never extended.
func (r *usersRepo) RecordLoginFailure(
	ctx context.Context,
	userID string,
	threshold int,
	lockFor time.Duration,
	now time.Time,
) (int, *time.Time, error) {
	nowUnix := toUnix(now)
	lockUnix := toUnix(now.Add(lockFor))

	row := r.q.QueryRowContext(ctx, `
		UPDATE users SET
			login_attempts = CASE
				WHEN lock_until IS NOT NULL AND lock_until <= ?1 THEN 1
				ELSE login_attempts + 1
			END,
			lock_until = CASE
				WHEN lock_until IS NOT NULL AND lock_until > ?1 THEN lock_until
				WHEN (CASE
					WHEN lock_until IS NOT NULL AND lock_until <= ?1 THEN 1
					ELSE login_attempts + 1
				END) >= ?2 THEN ?3
				ELSE NULL
			END,
			updated_at = ?1
		WHERE id = ?4
		RETURNING login_attempts, lock_until`,
		nowUnix, threshold, lockUnix, userID)

	var attempts int
	var lockUntil sql.NullInt64
	if err := row.Scan(&attempts, &lockUntil); err != nil {
		return 0, nil, mapNotFound(err)
	}
	return attempts, fromNullUnix(lockUntil), nil
}

func (r *usersRepo) RecordLoginSuccess(ctx context.Context, userID string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET
			login_attempts = 0,
			lock_until = NULL,
			last_login_at = ?,
			updated_at = ?
		WHERE id = ?`,
		toUnix(at), toUnix(at), userID)
}

func (r *usersRepo) SoftDeleteUser(ctx context.Context, userID string) error {
	return r.exec(ctx, `
		UPDATE users SET is_active = 0, updated_at = ?
		WHERE id = ?`,
		toUnix(time.Now()), userID)
}

func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                 domain.User
		passwordHash      sql.NullString
		emailVerifiedAt   sql.NullInt64
		passwordChangedAt sql.NullInt64
		lastLoginAt       sql.NullInt64
		lockUntil         sql.NullInt64
		federatedID       sql.NullString
		createdAt         int64
		updatedAt         int64
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&passwordHash,
		&u.IsEmailVerified,
		&emailVerifiedAt,
		&passwordChangedAt,
		&lastLoginAt,
		&u.LoginAttempts,
		&lockUntil,
		&federatedID,
		&u.IsActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.PasswordHash = fromNullString(passwordHash)
	u.EmailVerifiedAt = fromNullUnix(emailVerifiedAt)
	u.PasswordChangedAt = fromNullUnix(passwordChangedAt)
	u.LastLoginAt = fromNullUnix(lastLoginAt)
	u.LockUntil = fromNullUnix(lockUntil)
	u.FederatedID = fromNullString(federatedID)
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	return u, nil
}
