package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signupVerified(t, "ren@example.com", "a long password")

	_, pair, err := env.auth.Login(ctx, "ren@example.com", "a long password")
	require.NoError(t, err)

	env.advance(time.Second)
	access, err := env.tokens.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEqual(t, pair.AccessToken, access)

	got, err := env.tokens.Authenticate(ctx, access)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
}

func TestRefreshRejectsNonRefreshTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signupVerified(t, "kit@example.com", "a long password")

	_, pair, err := env.auth.Login(ctx, "kit@example.com", "a long password")
	require.NoError(t, err)

	t.Run("access token where refresh expected", func(t *testing.T) {
		_, err := env.tokens.Refresh(ctx, pair.AccessToken)
		require.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("refresh token where access expected", func(t *testing.T) {
		_, err := env.tokens.Authenticate(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := env.tokens.Refresh(ctx, "not.a.jwt")
		require.ErrorIs(t, err, ErrSessionInvalid)
	})
}

func TestSessionsDieWithTheAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signupVerified(t, "ola@example.com", "a long password")

	_, pair, err := env.auth.Login(ctx, "ola@example.com", "a long password")
	require.NoError(t, err)

	require.NoError(t, env.users.DeleteAccount(ctx, user.ID))

	_, err = env.tokens.Authenticate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrSessionInvalid)

	_, err = env.tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestPasswordChangeInvalidatesEarlierSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signupVerified(t, "bo@example.com", "old password 123")

	_, before, err := env.auth.Login(ctx, "bo@example.com", "old password 123")
	require.NoError(t, err)

	env.advance(time.Second)
	after, err := env.users.UpdatePassword(ctx, user.ID, "old password 123", "new password 456")
	require.NoError(t, err)

	t.Run("pre-change tokens rejected", func(t *testing.T) {
		_, err := env.tokens.Authenticate(ctx, before.AccessToken)
		require.ErrorIs(t, err, ErrSessionInvalid)
		_, err = env.tokens.Refresh(ctx, before.RefreshToken)
		require.ErrorIs(t, err, ErrSessionInvalid)
	})

	t.Run("the pair minted with the change survives", func(t *testing.T) {
		got, err := env.tokens.Authenticate(ctx, after.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)

		_, err = env.tokens.Refresh(ctx, after.RefreshToken)
		require.NoError(t, err)
	})
}
