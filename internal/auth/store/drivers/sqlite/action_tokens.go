package sqlite

import (
	"context"
	"time"

	"github.com/solsticehq/solstice/internal/auth/domain"
)

type actionTokensRepo struct {
	q querier
}

func (r *actionTokensRepo) CreateToken(ctx context.Context, t domain.ActionToken) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO action_tokens (id, user_id, token_hash, kind, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, string(t.Kind), toUnix(t.ExpiresAt), toUnix(t.CreatedAt))
	return mapConstraint(err)
}

func (r *actionTokensRepo) GetTokenByHash(ctx context.Context, hash string, kind domain.TokenKind) (domain.ActionToken, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, kind, expires_at, created_at
		FROM action_tokens
		WHERE token_hash = ? AND kind = ?`,
		hash, string(kind))

	var (
		t         domain.ActionToken
		kindStr   string
		expiresAt int64
		createdAt int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &kindStr, &expiresAt, &createdAt); err != nil {
		return domain.ActionToken{}, mapNotFound(err)
	}

	t.Kind = domain.TokenKind(kindStr)
	t.ExpiresAt = fromUnix(expiresAt)
	t.CreatedAt = fromUnix(createdAt)
	return t, nil
}

func (r *actionTokensRepo) DeleteToken(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM action_tokens WHERE id = ?`, id)
	return err
}

func (r *actionTokensRepo) DeleteTokensByKind(ctx context.Context, userID string, kind domain.TokenKind) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM action_tokens WHERE user_id = ? AND kind = ?`,
		userID, string(kind))
	return err
}

func (r *actionTokensRepo) DeleteAllUserTokens(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM action_tokens WHERE user_id = ?`, userID)
	return err
}

func (r *actionTokensRepo) HasValidToken(ctx context.Context, userID string, kind domain.TokenKind, now time.Time) (bool, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM action_tokens
		WHERE user_id = ? AND kind = ? AND expires_at > ?`,
		userID, string(kind), toUnix(now))

	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// PurgeStaleTokens drops tokens that are expired or past the retention
// window, whichever comes first.
func (r *actionTokensRepo) PurgeStaleTokens(ctx context.Context, now time.Time, retention time.Duration) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM action_tokens WHERE expires_at <= ? OR created_at <= ?`,
		toUnix(now), toUnix(now.Add(-retention)))
	return err
}
